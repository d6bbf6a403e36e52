package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/graphflow/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("name: reviews\ninfra: neo4j\n")
	if err := s.Write("reviews.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("reviews.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("team/a/b.yml", []byte("name: b")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("team/a/b.yml"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.yaml", []byte("name: del"))
	if err := s.Delete("del.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.yaml"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListOnlyDescriptors(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.yaml", []byte("name: a"))
	_ = s.Write("sub/b.yml", []byte("name: b"))
	_ = os.WriteFile(filepath.Join(s.root, "readme.md"), []byte("not a descriptor"), 0o644)
	_ = os.WriteFile(filepath.Join(s.root, ".hidden.yaml"), []byte("name: h"), 0o644)
	_ = os.MkdirAll(filepath.Join(s.root, ".git"), 0o755)
	_ = os.WriteFile(filepath.Join(s.root, ".git", "c.yaml"), []byte("name: c"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("%s has no checksum", it.Path)
		}
	}
	if len(items) == 2 && (items[0].Name != "a" || items[1].Name != "b") {
		t.Errorf("names = %q, %q", items[0].Name, items[1].Name)
	}
}

func TestOnlyDescriptorsAreAccessible(t *testing.T) {
	s := tempRoot(t)
	for _, p := range []string{"readme.md", ".hidden.yaml", "graph"} {
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrInvalidPayload) {
			t.Errorf("Write(%q) err = %v, want ErrInvalidPayload", p, err)
		}
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPayload) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidPayload", p, err)
		}
	}
}

func TestMissingDescriptorIsNotFound(t *testing.T) {
	s := tempRoot(t)
	if _, err := s.Read("nope.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope.yml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
	for _, p := range []string{"../../etc/passwd", "../outside.yaml", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.yaml", []byte("name: one"))
	if err := s.Write("atomic.yaml", []byte("name: two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.yaml")
	if string(got) != "name: two" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".graphflow-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFSRejectsFile(t *testing.T) {
	f, _ := os.CreateTemp("", "graphflow-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}
