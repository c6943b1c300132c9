// Package artifact stores processed upload images on the local filesystem
// under collision-free generated names.
package artifact

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrBadName is returned for names that could escape the store directory.
var ErrBadName = errors.New("invalid artifact name")

// maxCreateAttempts bounds the retry loop on name collisions. With random
// 128-bit names a single retry is already unlikely.
const maxCreateAttempts = 10

// Store is a directory of image artifacts.
type Store struct {
	Dir string
}

// NewStore creates the artifact directory if needed and returns a store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Create opens a new, exclusively created file with a random name and the
// given extension (including the dot). The caller must close the file.
func (s *Store) Create(ext string) (string, *os.File, error) {
	for range maxCreateAttempts {
		u := uuid.New()
		name := hex.EncodeToString(u[:]) + ext

		f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("creating artifact: %w", err)
		}
		return name, f, nil
	}
	return "", nil, fmt.Errorf("creating artifact: name collisions exhausted %d attempts", maxCreateAttempts)
}

// Save writes data to a newly created artifact and returns its name.
// No file is left behind on failure.
func (s *Store) Save(ext string, data []byte) (string, error) {
	name, f, err := s.Create(ext)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(filepath.Join(s.Dir, name))
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(filepath.Join(s.Dir, name))
		return "", fmt.Errorf("closing artifact: %w", err)
	}

	return name, nil
}

// Open opens a stored artifact for reading.
func (s *Store) Open(name string) (*os.File, error) {
	if !validName(name) {
		return nil, ErrBadName
	}
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	return f, nil
}

// Delete removes a stored artifact. A name that is already absent is treated
// as success so delete stays idempotent.
func (s *Store) Delete(name string) error {
	if !validName(name) {
		return ErrBadName
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	return nil
}

// validName rejects anything that is not a plain generated filename.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return name == filepath.Base(name)
}
