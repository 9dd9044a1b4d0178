package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/pdfarchiver/internal/apperr"
	"github.com/starford/pdfarchiver/internal/checksum"
)

func tempArchive(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempArchive(t)
	content := []byte("%PDF-1.4\n%%EOF\n")
	if err := s.Write("doc.pdf", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("doc.pdf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempArchive(t)
	if err := s.Write("2020/a/b.pdf", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("2020/a/b.pdf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempArchive(t)
	_, err := s.Read("missing.pdf")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist in chain", err)
	}
}

func TestCreate(t *testing.T) {
	s := tempArchive(t)
	if err := s.Create("untagged/scan.pdf", []byte("one")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("untagged/scan.pdf", []byte("two"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("untagged/scan.pdf")
	if string(got) != "one" {
		t.Errorf("content = %q, want original", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, "untagged", ".pdfarchiver-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestStat(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("2021/x.pdf", []byte("abc"))
	meta, err := s.Stat("2021/x.pdf")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Path != "2021/x.pdf" || meta.Size != 3 || meta.Checksum != checksum.Sum([]byte("abc")) {
		t.Errorf("meta = %+v", meta)
	}
	if _, err := s.Stat("2021"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Stat(dir) err = %v, want ErrNotFound", err)
	}
}

func TestDeletePrunesEmptyDirs(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("2019/del.pdf", []byte("bye"))
	if err := s.Delete("2019/del.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("2019/del.pdf"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if _, err := os.Stat(filepath.Join(s.root, "2019")); !os.IsNotExist(err) {
		t.Errorf("empty year dir should be pruned, stat err = %v", err)
	}
	if _, err := os.Stat(s.root); err != nil {
		t.Errorf("root must survive: %v", err)
	}
}

func TestMove(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("untagged/old.pdf", []byte("data"))
	if err := s.Move("untagged/old.pdf", "2020/new.pdf"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("2020/new.pdf")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("untagged/old.pdf"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMoveRefusesOverwrite(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("a.pdf", []byte("a"))
	_ = s.Write("b.pdf", []byte("b"))
	if err := s.Move("a.pdf", "b.pdf"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("Move err = %v, want ErrAlreadyExists", err)
	}
	if err := s.Move("a.pdf", "a.pdf"); err != nil {
		t.Errorf("Move onto itself: %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("a.pdf", []byte("a"))
	_ = s.Write("2020/b.PDF", []byte("b"))
	_ = s.Write("readme.txt", []byte("not pdf"))
	_ = s.Write(".hidden/c.pdf", []byte("c"))
	_ = os.WriteFile(filepath.Join(s.root, ".pdfarchiver-tmp-1.pdf"), []byte("tmp"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = true
	}
	if !paths["a.pdf"] || !paths["2020/b.PDF"] {
		t.Errorf("paths = %v", paths)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempArchive(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.pdf",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Create(p, []byte("x")); err == nil {
			t.Errorf("expected error for create at %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("atomic.pdf", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.pdf", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.pdf")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".pdfarchiver-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestIsDocument(t *testing.T) {
	cases := map[string]bool{
		"a.pdf":                   true,
		"2020/B.PDF":              true,
		"notes.md":                false,
		".pdfarchiver-tmp-12.pdf": false,
		"pdf":                     false,
	}
	for name, want := range cases {
		if got := IsDocument(name); got != want {
			t.Errorf("IsDocument(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "pdfarchiver-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
