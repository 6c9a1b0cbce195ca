package bytesize

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  ByteSize
	}{
		{"1024", 1024},
		{"0", 0},
		{"1B", 1},
		{"1K", 1000},
		{"1KB", 1000},
		{"1Ki", 1024},
		{"1KiB", 1024},
		{"500Mi", 500 * MiB},
		{"100MB", 100 * MB},
		{"1Gi", GiB},
		{"2GiB", 2 * GiB},
		{"1.5Gi", ByteSize(1.5 * float64(GiB))},
		{"4TiB", 4 * TiB},
		{"3TB", 3 * TB},
		{"  2 Gi  ", 2 * GiB},
		{"1gib", GiB}, // case-insensitive units
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "  ", "Gi", "12XB", "1.2.3Gi", "-5Gi", "abc"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("250Gi")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if b != 250*GiB {
		t.Errorf("UnmarshalText gave %d, want %d", b, 250*GiB)
	}

	if err := b.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText accepted invalid input")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		size ByteSize
		want string
	}{
		{512, "512B"},
		{2 * KiB, "2.00KiB"},
		{3 * MiB, "3.00MiB"},
		{GiB + GiB/2, "1.50GiB"},
		{2 * TiB, "2.00TiB"},
	}

	for _, tt := range tests {
		if got := tt.size.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", uint64(tt.size), got, tt.want)
		}
	}
}
