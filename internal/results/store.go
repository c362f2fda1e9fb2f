// Package results manages the flat directories the tool reads recordings
// from and writes transcripts to.
package results

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrInvalidName rejects names that would escape the directory.
var ErrInvalidName = errors.New("invalid file name")

// Artifact describes one file in a store.
type Artifact struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store is a flat directory of files.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Ensure creates the directory if missing.
func (s *Store) Ensure() error {
	return os.MkdirAll(s.dir, 0o755)
}

// Path resolves name inside the store.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Write stores content under name, replacing any previous file atomically.
func (s *Store) Write(name, content string) (string, error) {
	p, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := s.Ensure(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return p, nil
}

// Save copies r into the store under name.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	p, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := s.Ensure(); err != nil {
		return "", err
	}
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	return p, f.Close()
}

// Open opens a stored file for reading.
func (s *Store) Open(name string) (*os.File, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// List returns visible regular files sorted by name.
func (s *Store) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Clear removes every entry except hidden files, which hold locks.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return s.Ensure()
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") ||
		filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
