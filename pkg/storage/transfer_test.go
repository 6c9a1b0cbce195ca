package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kheopsian/Seederr/pkg/engine"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

func TestCopySingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "payload.bin")
	dst := filepath.Join(dir, "dst", "linux", "payload.bin")
	writeFile(t, src, "content")

	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	tr := NewFSTransfer()
	if err := tr.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("copy content mismatch: %q", data)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat copy: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime not preserved: %v != %v", info.ModTime(), mtime)
	}
}

func TestCopyDirectoryTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "season1")
	writeFile(t, filepath.Join(src, "e01.mkv"), "episode one")
	writeFile(t, filepath.Join(src, "extras", "bloopers.mkv"), "extras")
	dst := filepath.Join(dir, "dst", "season1")

	tr := NewFSTransfer()
	if err := tr.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	for _, rel := range []string{"e01.mkv", filepath.Join("extras", "bloopers.mkv")} {
		if _, err := os.Stat(filepath.Join(dst, rel)); err != nil {
			t.Errorf("missing %q in copy: %v", rel, err)
		}
	}
}

func TestCopyCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "payload.bin")
	writeFile(t, src, "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewFSTransfer()
	err := tr.Copy(ctx, src, filepath.Join(dir, "dst", "payload.bin"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "tree")
	dst := filepath.Join(dir, "dst", "tree")
	writeFile(t, filepath.Join(src, "a.bin"), "aaaa")
	writeFile(t, filepath.Join(src, "sub", "b.bin"), "bb")

	tr := NewFSTransfer()
	if err := tr.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if err := tr.Verify(src, dst); err != nil {
		t.Fatalf("Verify of a faithful copy failed: %v", err)
	}
}

func TestVerifySizeMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "full content")
	writeFile(t, dst, "trunc")

	tr := NewFSTransfer()
	err := tr.Verify(src, dst)
	if !errors.Is(err, engine.ErrVerifyFailed) {
		t.Fatalf("expected ErrVerifyFailed, got %v", err)
	}
}

func TestVerifyMissingCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "tree")
	dst := filepath.Join(dir, "dst", "tree")
	writeFile(t, filepath.Join(src, "a.bin"), "aaaa")
	writeFile(t, filepath.Join(src, "b.bin"), "bbbb")

	tr := NewFSTransfer()
	if err := tr.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dst, "b.bin")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := tr.Verify(src, dst); err == nil {
		t.Fatal("expected verify failure for a missing file")
	}
}

func TestRemoveAndExists(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "tree")
	writeFile(t, filepath.Join(tree, "a.bin"), "aaaa")

	tr := NewFSTransfer()

	exists, err := tr.Exists(tree)
	if err != nil || !exists {
		t.Fatalf("expected tree to exist, got %v %v", exists, err)
	}

	if err := tr.Remove(tree); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	exists, err = tr.Exists(tree)
	if err != nil || exists {
		t.Fatalf("expected tree to be gone, got %v %v", exists, err)
	}
}

func TestDiskStatOverride(t *testing.T) {
	stat := NewDiskStat()
	stat.OverrideCapacity("/some/volume", 1<<40)

	capacity, err := stat.CapacityBytes("/some/volume")
	if err != nil {
		t.Fatalf("CapacityBytes failed: %v", err)
	}
	if capacity != 1<<40 {
		t.Errorf("expected overridden capacity, got %d", capacity)
	}

	// Clearing the override falls back to statting the volume.
	stat.OverrideCapacity("/some/volume", 0)
	if _, ok := stat.overrides["/some/volume"]; ok {
		t.Error("zero capacity should remove the override")
	}
}
