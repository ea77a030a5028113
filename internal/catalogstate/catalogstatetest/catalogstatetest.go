// Package catalogstatetest provides a second, independent
// catalogstate.State implementation for tests, which exercises the State
// boundary through the interface rather than through
// catalogstate.MemoryState's internals.
package catalogstatetest

import (
	"fmt"
	"sync"

	"catalogstore/internal/catalogstate"
	"catalogstore/internal/objectstore"
)

// RecordingState wraps a plain map but additionally records every Add/Remove
// call it receives, in order, so tests can assert on the exact sequence of
// mutations a transaction or rebuild run applied -- not just the final set.
type RecordingState struct {
	mu     sync.Mutex
	files  map[string]catalogstate.FileFooterSummary
	events []Event
}

// Event is one recorded mutation.
type Event struct {
	Kind string // "add" or "remove"
	Key  string
}

// New returns an empty RecordingState.
func New() *RecordingState {
	return &RecordingState{files: make(map[string]catalogstate.FileFooterSummary)}
}

// Factory is a catalogstate.Factory that ignores its init argument and
// always returns a fresh RecordingState.
func Factory(_ any) catalogstate.State {
	return New()
}

func (s *RecordingState) Add(key objectstore.Path, summary catalogstate.FileFooterSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if _, exists := s.files[k]; exists {
		return fmt.Errorf("catalogstatetest: key %q already present", k)
	}
	s.files[k] = summary
	s.events = append(s.events, Event{Kind: "add", Key: k})
	return nil
}

func (s *RecordingState) Remove(key objectstore.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if _, exists := s.files[k]; !exists {
		return fmt.Errorf("catalogstatetest: key %q not present", k)
	}
	delete(s.files, k)
	s.events = append(s.events, Event{Kind: "remove", Key: k})
	return nil
}

func (s *RecordingState) Keys() []objectstore.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]objectstore.Path, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, objectstore.Path(splitKey(k)))
	}
	return keys
}

func (s *RecordingState) Clone() catalogstate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := New()
	for k, v := range s.files {
		clone.files[k] = v
	}
	clone.events = append(clone.events, s.events...)
	return clone
}

// Events returns the mutation history recorded so far, in call order.
func (s *RecordingState) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func splitKey(k string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(k); i++ {
		if i == len(k) || k[i] == '/' {
			segs = append(segs, k[start:i])
			start = i + 1
		}
	}
	return segs
}
