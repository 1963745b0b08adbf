package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if err := WriteAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Fatalf("expected replaced content, got %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteIfChangedSkipsIdenticalBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "640.jpg")
	data := []byte("variant bytes")

	wrote, err := WriteIfChanged(path, data, 0o644)
	if err != nil || !wrote {
		t.Fatalf("first write: wrote=%v err=%v", wrote, err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	wrote, err = WriteIfChanged(path, data, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Fatal("identical bytes should not be rewritten")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Fatalf("file was touched: mtime %s", info.ModTime())
	}

	wrote, err = WriteIfChanged(path, []byte("variant bytez"), 0o644)
	if err != nil || !wrote {
		t.Fatalf("changed bytes: wrote=%v err=%v", wrote, err)
	}
}

func TestSameContentMissingFile(t *testing.T) {
	same, err := SameContent(filepath.Join(t.TempDir(), "missing"), []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if same {
		t.Fatal("missing file cannot match")
	}
}
