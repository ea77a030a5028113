// Package catalogstate defines the catalog-state collaborator surface: the
// in-memory projection of the set of live chunk references, updated as
// transactions are applied. The preserved catalog treats this interface
// opaquely -- only Add is exercised by commits and by rebuild.
package catalogstate

import "catalogstore/internal/objectstore"

// FileFooterSummary is the per-file summary recorded alongside each live
// key. It is treated as opaque payload by the catalog core; producers
// supply whatever their chunk writer returned.
type FileFooterSummary struct {
	NumRows int64
}

// State is the catalog-state capability a Catalog is parameterized over.
// Implementations may back this with anything from a plain map to a
// query-engine-visible index; the catalog core never inspects it beyond
// these methods.
type State interface {
	// Add records one file. Returns an error if the key was already
	// present (I2: every live key was introduced by exactly one
	// transaction).
	Add(key objectstore.Path, summary FileFooterSummary) error

	// Remove is reserved for future removal actions; not invoked by the
	// core described here. Implementations may return an error
	// unconditionally if they do not support it.
	Remove(key objectstore.Path) error

	// Keys returns every live key currently recorded, in unspecified
	// order.
	Keys() []objectstore.Path

	// Clone returns an independent copy for copy-on-write transaction
	// preparation: mutations to the clone must not affect the original
	// until the transaction commits.
	Clone() State
}

// Factory constructs a new, empty State from caller-supplied
// initialization input. The input's type is opaque to the catalog core.
type Factory func(init any) State
