// Package diskstore implements objectstore.Store on the local filesystem.
// Writes are atomic: each Put stages its data in a temp file and renames it
// into place, so readers never observe a partially written object.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"catalogstore/internal/objectstore"
)

// Store is a filesystem-backed objectstore.Store rooted at Dir.
type Store struct {
	dir      string
	fileMode os.FileMode
}

// DefaultFileMode is used when New is called without an explicit mode.
const DefaultFileMode = 0o644

// New creates a Store rooted at dir. dir is created if it does not exist.
func New(dir string, fileMode os.FileMode) (*Store, error) {
	if fileMode == 0 {
		fileMode = DefaultFileMode
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskstore: create root %s: %w", dir, err)
	}
	return &Store{dir: dir, fileMode: fileMode}, nil
}

func (s *Store) nativePath(location objectstore.Path) string {
	parts := append([]string{s.dir}, []string(location)...)
	return filepath.Join(parts...)
}

func (s *Store) Put(_ context.Context, location objectstore.Path, r io.Reader) error {
	full := s.nativePath(location)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("diskstore: mkdir for %s: %w", location, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("diskstore: create temp file for %s: %w", location, err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(s.fileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: chmod temp file for %s: %w", location, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: write temp file for %s: %w", location, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: close temp file for %s: %w", location, err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskstore: rename into place for %s: %w", location, err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, location objectstore.Path) (io.ReadCloser, error) {
	f, err := os.Open(s.nativePath(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, objectstore.ErrNotFound
		}
		return nil, fmt.Errorf("diskstore: open %s: %w", location, err)
	}
	return f, nil
}

func (s *Store) Delete(_ context.Context, location objectstore.Path) error {
	err := os.Remove(s.nativePath(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return objectstore.ErrNotFound
		}
		return fmt.Errorf("diskstore: delete %s: %w", location, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix objectstore.Path, fn func(objectstore.ObjectMeta) error) error {
	root := s.nativePath(prefix)
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("diskstore: stat %s: %w", prefix, err)
	}
	if !info.IsDir() {
		return fn(objectstore.ObjectMeta{Location: prefix.Clone(), Size: info.Size()})
	}

	var matches []objectstore.ObjectMeta
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		segs := splitRel(rel)
		fi, err := d.Info()
		if err != nil {
			return err
		}
		matches = append(matches, objectstore.ObjectMeta{Location: segs, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("diskstore: walk %s: %w", prefix, err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Location.String() < matches[j].Location.String()
	})

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func splitRel(rel string) objectstore.Path {
	rel = filepath.ToSlash(rel)
	var segs objectstore.Path
	start := 0
	for i := 0; i <= len(rel); i++ {
		if i == len(rel) || rel[i] == '/' {
			if i > start {
				segs = append(segs, rel[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
