// Package memstore is an in-memory objectstore.Store, the primary backend
// used by the catalog test suite and the rebuild algorithm's own tests.
package memstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"catalogstore/internal/objectstore"
)

// Store is an in-memory objectstore.Store implementation. The zero value is
// not usable; construct with New.
type Store struct {
	mu      sync.Mutex
	objects map[string]entry
}

type entry struct {
	location objectstore.Path
	data     []byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]entry)}
}

func key(p objectstore.Path) string {
	return strings.Join(p, "/")
}

func (s *Store) Put(_ context.Context, location objectstore.Path, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key(location)] = entry{location: location.Clone(), data: data}
	return nil
}

func (s *Store) Get(_ context.Context, location objectstore.Path) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.objects[key(location)]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (s *Store) Delete(_ context.Context, location objectstore.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(location)
	if _, ok := s.objects[k]; !ok {
		return objectstore.ErrNotFound
	}
	delete(s.objects, k)
	return nil
}

func (s *Store) List(ctx context.Context, prefix objectstore.Path, fn func(objectstore.ObjectMeta) error) error {
	s.mu.Lock()
	matches := make([]entry, 0)
	for _, e := range s.objects {
		if hasPrefix(e.location, prefix) {
			matches = append(matches, e)
		}
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		return key(matches[i].location) < key(matches[j].location)
	})

	for _, e := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(objectstore.ObjectMeta{Location: e.location.Clone(), Size: int64(len(e.data))}); err != nil {
			return err
		}
	}
	return nil
}

func hasPrefix(location, prefix objectstore.Path) bool {
	if len(prefix) > len(location) {
		return false
	}
	for i := range prefix {
		if location[i] != prefix[i] {
			return false
		}
	}
	return true
}
