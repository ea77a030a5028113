// Package storetest provides a conformance suite for objectstore.Store
// implementations. memstore and diskstore run it from their own tests; the
// cloud-backed stores do not run it.
package storetest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"catalogstore/internal/objectstore"
)

// Run exercises the full objectstore.Store contract against a freshly
// constructed, empty store. Call it once per backend from that backend's
// own test file:
//
//	func TestConformance(t *testing.T) {
//	    storetest.Run(t, func() objectstore.Store { return New() })
//	}
func Run(t *testing.T, newStore func() objectstore.Store) {
	t.Helper()

	t.Run("PutGet", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		loc := objectstore.Path{"a", "b", "c.parquet"}
		if err := s.Put(ctx, loc, strings.NewReader("payload")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		r, err := s.Get(ctx, loc)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		defer r.Close()
	})

	t.Run("GetMissingReturnsErrNotFound", func(t *testing.T) {
		s := newStore()
		_, err := s.Get(context.Background(), objectstore.Path{"nope"})
		if !errors.Is(err, objectstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteMissingReturnsErrNotFound", func(t *testing.T) {
		s := newStore()
		err := s.Delete(context.Background(), objectstore.Path{"nope"})
		if !errors.Is(err, objectstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		loc := objectstore.Path{"x"}
		if err := s.Put(ctx, loc, strings.NewReader("first")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Put(ctx, loc, strings.NewReader("second")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		r, err := s.Get(ctx, loc)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if string(data) != "second" {
			t.Errorf("got %q after overwrite, want %q", data, "second")
		}
	})

	t.Run("ListRecursesUnderPrefix", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		want := []objectstore.Path{
			{"srv", "db", "data", "p1", "1", "t.parquet"},
			{"srv", "db", "data", "p1", "2", "t.parquet"},
			{"srv", "db", "transactions", "1", "u.txn"},
		}
		for _, p := range want {
			if err := s.Put(ctx, p, strings.NewReader("x")); err != nil {
				t.Fatalf("Put(%v): %v", p, err)
			}
		}
		var seen int
		err := s.List(ctx, objectstore.Path{"srv", "db", "data"}, func(objectstore.ObjectMeta) error {
			seen++
			return nil
		})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if seen != 2 {
			t.Errorf("expected 2 objects under data/, got %d", seen)
		}
	})

	t.Run("DeleteRemovesObject", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		loc := objectstore.Path{"y"}
		if err := s.Put(ctx, loc, strings.NewReader("x")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Delete(ctx, loc); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, loc); !errors.Is(err, objectstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}
