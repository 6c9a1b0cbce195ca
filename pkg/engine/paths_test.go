package engine

import "testing"

func TestPathHasRoot(t *testing.T) {
	tests := []struct {
		path string
		root string
		want bool
	}{
		{"/downloads/hot/file", "/downloads/hot", true},
		{"/downloads/hot", "/downloads/hot", true},
		{"/downloads/hotfix", "/downloads/hot", false},
		{"/downloads/hot/", "/downloads/hot", true},
		{"/elsewhere", "/downloads/hot", false},
		{"/downloads/hot/file", "", false},
	}
	for _, tt := range tests {
		if got := pathHasRoot(tt.path, tt.root); got != tt.want {
			t.Errorf("pathHasRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}

func TestRelocatedPath(t *testing.T) {
	dst, ok := relocatedPath("/master/torrents/linux/ubuntu.iso", "/master/torrents", "/cache/torrents")
	if !ok {
		t.Fatal("expected relocation to succeed")
	}
	if dst != "/cache/torrents/linux/ubuntu.iso" {
		t.Errorf("category layout not preserved: %q", dst)
	}

	if _, ok := relocatedPath("/elsewhere/ubuntu.iso", "/master/torrents", "/cache/torrents"); ok {
		t.Error("content outside the source root must not relocate")
	}

	if _, ok := relocatedPath("/master/torrents", "/master/torrents", "/cache/torrents"); ok {
		t.Error("the root itself is not a payload path")
	}
}

func TestTierOf(t *testing.T) {
	if tier := testTierPaths.TierOf("/cache/torrents/linux"); tier != TierCache {
		t.Errorf("expected CACHE, got %v", tier)
	}
	if tier := testTierPaths.TierOf("/master/torrents/linux"); tier != TierMaster {
		t.Errorf("expected MASTER, got %v", tier)
	}
	// Anything outside the cache root counts as master.
	if tier := testTierPaths.TierOf("/somewhere/else"); tier != TierMaster {
		t.Errorf("expected MASTER for unknown path, got %v", tier)
	}
}
