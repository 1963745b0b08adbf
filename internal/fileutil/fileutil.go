package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return WriteAtomicFrom(dst, in, 0o644)
}

// WriteAtomic replaces path with data. Readers see either the old file or the
// complete new one, never a partial write.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteAtomicFrom(path, bytes.NewReader(data), mode)
}

// WriteAtomicFrom streams r into a temp file next to path and renames it into place.
func WriteAtomicFrom(path string, r io.Reader, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// SameContent reports whether the file at path holds exactly data. A missing
// file is not an error.
func SameContent(path string, data []byte) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !info.Mode().IsRegular() || info.Size() != int64(len(data)) {
		return false, nil
	}
	existing, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Equal(existing, data), nil
}

// WriteIfChanged writes data atomically unless path already holds the same
// bytes. It reports whether a write happened.
func WriteIfChanged(path string, data []byte, mode os.FileMode) (bool, error) {
	same, err := SameContent(path, data)
	if err != nil {
		return false, fmt.Errorf("compare %s: %w", path, err)
	}
	if same {
		return false, nil
	}
	if err := WriteAtomic(path, data, mode); err != nil {
		return false, err
	}
	return true, nil
}
