// Package catalogerr is the exhaustive error taxonomy produced by the
// catalog core: path parsing, metadata codec, rebuild, and preserved
// catalog failures all surface through these types so callers can
// distinguish failure modes with errors.As / errors.Is.
package catalogerr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors with no associated data.
var (
	// ErrOpenEmptyCatalogExists is returned by a new-empty operation that
	// found prior transaction objects already in the store.
	ErrOpenEmptyCatalogExists = errors.New("catalog: cannot create new empty catalog: a transaction log already exists")
)

// LocationParseError reports that a key did not match the path scheme.
type LocationParseError struct {
	Key   string
	Cause error
}

func (e *LocationParseError) Error() string {
	return fmt.Sprintf("cannot parse location %q: %v", e.Key, e.Cause)
}

func (e *LocationParseError) Unwrap() error { return e.Cause }

// MetadataReadFailureError reports that a chunk file's footer could not be
// read or its catalog metadata could not be extracted -- exact wording
// matches the condition under which rebuild downgrades this to a logged
// skip when ignore_metadata_read_failure is set.
type MetadataReadFailureError struct {
	Path  string
	Cause error
}

func (e *MetadataReadFailureError) Error() string {
	return fmt.Sprintf("Cannot read IOx metadata from parquet file (%q): %v", e.Path, e.Cause)
}

func (e *MetadataReadFailureError) Unwrap() error { return e.Cause }

// RevisionZeroError reports that a chunk file advertised the reserved,
// always-invalid revision counter 0.
type RevisionZeroError struct {
	Path string
}

func (e *RevisionZeroError) Error() string {
	return fmt.Sprintf("Internal error: Revision cannot be zero (this transaction is always empty): %q", e.Path)
}

// MultipleTransactionsError reports divergent history: two chunk files at
// the same revision carrying different transaction uuids. UUIDLo/UUIDHi
// are sorted so the error is deterministic regardless of scan order.
type MultipleTransactionsError struct {
	Revision uint64
	UUIDLo   uuid.UUID
	UUIDHi   uuid.UUID
}

func (e *MultipleTransactionsError) Error() string {
	return fmt.Sprintf("Found multiple transaction for revision %d: %s and %s", e.Revision, e.UUIDLo, e.UUIDHi)
}

// NewMultipleTransactionsError builds a MultipleTransactionsError with its
// two uuids sorted lexicographically so repeated runs over the same
// divergent history produce an identical message.
func NewMultipleTransactionsError(revision uint64, a, b uuid.UUID) *MultipleTransactionsError {
	if a.String() > b.String() {
		a, b = b, a
	}
	return &MultipleTransactionsError{Revision: revision, UUIDLo: a, UUIDHi: b}
}

// CatalogLoadCorruptError reports that a transaction record at Revision
// could not be parsed or violated a load-time invariant.
type CatalogLoadCorruptError struct {
	Revision uint64
	Cause    error
}

func (e *CatalogLoadCorruptError) Error() string {
	return fmt.Sprintf("catalog: transaction record at revision %d is corrupt: %v", e.Revision, e.Cause)
}

func (e *CatalogLoadCorruptError) Unwrap() error { return e.Cause }

// StoreReadError wraps an object-store read failure.
type StoreReadError struct {
	Cause error
}

func (e *StoreReadError) Error() string { return fmt.Sprintf("catalog: store read failed: %v", e.Cause) }
func (e *StoreReadError) Unwrap() error { return e.Cause }

// StoreWriteError wraps an object-store write failure.
type StoreWriteError struct {
	Cause error
}

func (e *StoreWriteError) Error() string { return fmt.Sprintf("catalog: store write failed: %v", e.Cause) }
func (e *StoreWriteError) Unwrap() error { return e.Cause }
