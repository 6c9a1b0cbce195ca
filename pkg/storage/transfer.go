package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Kheopsian/Seederr/pkg/engine"
)

// FSTransfer implements the engine's file transfer provider on the local
// filesystem. Copies preserve name, size, permissions and modification time
// so the torrent client recognizes the relocated content as complete without
// a recheck.
type FSTransfer struct{}

// NewFSTransfer creates a filesystem transfer provider.
func NewFSTransfer() *FSTransfer {
	return &FSTransfer{}
}

// Copy duplicates src (a file or a directory tree) to dst, creating parent
// directories as needed. src is only ever read.
func (t *FSTransfer) Copy(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %q: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	if !info.IsDir() {
		return copyFile(ctx, src, dst, info)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(target, fi.Mode().Perm())
		}
		return copyFile(ctx, path, target, fi)
	})
}

// copyFile copies one regular file, carrying over mode and mtime.
func copyFile(ctx context.Context, src, dst string, info fs.FileInfo) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %q: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %q: %w", dst, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve mtime of %q: %w", dst, err)
	}
	return nil
}

// Verify checks that dst contains every file of src with a matching size.
func (t *FSTransfer) Verify(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %q: %w", src, err)
	}

	if !srcInfo.IsDir() {
		return verifyFile(src, dst, srcInfo.Size())
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return verifyFile(path, filepath.Join(dst, rel), fi.Size())
	})
}

func verifyFile(src, dst string, wantSize int64) error {
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("missing copy of %q: %w", src, err)
	}
	if info.Size() != wantSize {
		return fmt.Errorf("%w: %q is %d bytes, source is %d bytes",
			engine.ErrVerifyFailed, dst, info.Size(), wantSize)
	}
	return nil
}

// Remove deletes the file or directory tree at path.
func (t *FSTransfer) Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (t *FSTransfer) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
