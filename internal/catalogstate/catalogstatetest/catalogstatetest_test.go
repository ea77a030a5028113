package catalogstatetest

import (
	"testing"

	"catalogstore/internal/catalogstate"
	"catalogstore/internal/objectstore"
)

func TestRecordingStateRecordsEvents(t *testing.T) {
	s := New()
	k1 := objectstore.Path{"a"}
	k2 := objectstore.Path{"b"}

	if err := s.Add(k1, catalogstate.FileFooterSummary{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(k2, catalogstate.FileFooterSummary{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Remove(k1); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	events := s.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != "add" || events[0].Key != "a" {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[2].Kind != "remove" || events[2].Key != "a" {
		t.Errorf("event[2] = %+v", events[2])
	}
}

func TestRecordingStateCloneCarriesHistory(t *testing.T) {
	s := New()
	if err := s.Add(objectstore.Path{"a"}, catalogstate.FileFooterSummary{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	clone := s.Clone().(*RecordingState)
	if err := clone.Add(objectstore.Path{"b"}, catalogstate.FileFooterSummary{}); err != nil {
		t.Fatalf("Add on clone: %v", err)
	}

	if len(s.Keys()) != 1 {
		t.Errorf("original mutated by clone")
	}
	if len(clone.Events()) != 2 {
		t.Errorf("expected clone to carry original event plus its own, got %d", len(clone.Events()))
	}
}

func TestFactoryIgnoresInit(t *testing.T) {
	state := Factory(nil)
	if len(state.Keys()) != 0 {
		t.Error("expected fresh empty state")
	}
}
