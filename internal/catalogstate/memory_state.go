package catalogstate

import (
	"fmt"
	"maps"
	"sort"

	"catalogstore/internal/objectstore"
)

// MemoryState is the production State implementation: a plain in-memory
// map from object-store key to footer summary. It carries no interior
// mutability of its own -- the catalog core serializes all access through
// its single-writer guard, and Clone gives transaction preparation its own
// copy-on-write snapshot.
type MemoryState struct {
	files map[string]entry
}

type entry struct {
	key     objectstore.Path
	summary FileFooterSummary
}

// NewMemoryState returns an empty MemoryState. It satisfies Factory when
// used as catalogstate.NewMemoryStateFactory.
func NewMemoryState() *MemoryState {
	return &MemoryState{files: make(map[string]entry)}
}

// NewMemoryStateFactory is a Factory that ignores its init argument and
// always returns an empty MemoryState.
func NewMemoryStateFactory(_ any) State {
	return NewMemoryState()
}

func (s *MemoryState) Add(key objectstore.Path, summary FileFooterSummary) error {
	k := key.String()
	if _, exists := s.files[k]; exists {
		return fmt.Errorf("catalogstate: key %q already present", k)
	}
	s.files[k] = entry{key: key.Clone(), summary: summary}
	return nil
}

func (s *MemoryState) Remove(key objectstore.Path) error {
	k := key.String()
	if _, exists := s.files[k]; !exists {
		return fmt.Errorf("catalogstate: key %q not present", k)
	}
	delete(s.files, k)
	return nil
}

func (s *MemoryState) Keys() []objectstore.Path {
	keys := make([]objectstore.Path, 0, len(s.files))
	for _, e := range s.files {
		keys = append(keys, e.key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (s *MemoryState) Clone() State {
	clone := &MemoryState{files: make(map[string]entry, len(s.files))}
	maps.Copy(clone.files, s.files)
	return clone
}
