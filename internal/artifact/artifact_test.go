package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveAndOpen(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Save(".jpg", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("expected .jpg suffix, got %q", name)
	}
	// 32 hex chars + extension.
	if len(name) != 32+len(".jpg") {
		t.Errorf("unexpected name length: %q", name)
	}

	f, err := s.Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	data, _ := os.ReadFile(filepath.Join(s.Dir, name))
	if string(data) != "jpeg bytes" {
		t.Errorf("stored content mismatch: %q", data)
	}
}

func TestSaveUniqueNames(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Save(".png", []byte("a"))
	if err != nil {
		t.Fatalf("Save a: %v", err)
	}
	b, err := s.Save(".png", []byte("b"))
	if err != nil {
		t.Fatalf("Save b: %v", err)
	}
	if a == b {
		t.Errorf("expected distinct names, both %q", a)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)

	name, _ := s.Save(".gif", []byte("gif"))
	if err := s.Delete(name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, name)); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}

	// Deleting an absent artifact succeeds.
	if err := s.Delete(name); err != nil {
		t.Errorf("Delete absent: %v", err)
	}
}

func TestRejectsUnsafeNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", ".", "..", "../escape.jpg", "a/b.jpg", `a\b.jpg`} {
		if err := s.Delete(name); !errors.Is(err, ErrBadName) {
			t.Errorf("Delete(%q): expected ErrBadName, got %v", name, err)
		}
		if _, err := s.Open(name); !errors.Is(err, ErrBadName) {
			t.Errorf("Open(%q): expected ErrBadName, got %v", name, err)
		}
	}
}
