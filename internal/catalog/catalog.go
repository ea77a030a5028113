// Package catalog implements the preserved catalog: the durable,
// revision-numbered transaction log persisted to the object store, the
// in-memory state it projects, and the open/commit/abort transaction
// protocol that keeps the two in lockstep.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"catalogstore/internal/catalogerr"
	"catalogstore/internal/catalogpath"
	"catalogstore/internal/catalogstate"
	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
)

// ErrTransactionClosed is returned by AddParquet, Commit, or Abort on a
// Transaction that has already committed or aborted.
var ErrTransactionClosed = errors.New("catalog: transaction already committed or aborted")

// Catalog is the in-memory projection of a preserved catalog, backed by a
// single (server, database) transaction log. The zero value is not
// usable; construct with NewEmpty or Load.
type Catalog struct {
	store        objectstore.Store
	scheme       catalogpath.Scheme
	stateFactory catalogstate.Factory
	logger       *slog.Logger

	// writerGuard enforces the single-writer discipline: at most one
	// transaction is open at a time. Held from OpenTransaction through
	// Commit/Abort.
	writerGuard sync.Mutex

	// stateMu protects the fields below, which reflect only committed
	// state. Readers take a brief read lock; commits take a brief write
	// lock to swap in the new snapshot.
	stateMu     sync.RWMutex
	revision    uint64
	state       catalogstate.State
	currentUUID uuid.UUID
	hasCommits  bool
}

// NewEmpty creates an in-memory catalog at revision 0. No transaction
// object is written for revision 0. It fails with
// catalogerr.ErrOpenEmptyCatalogExists if a transaction log already exists
// in the store -- callers must Wipe first.
func NewEmpty(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme, stateFactory catalogstate.Factory, init any, logger *slog.Logger) (*Catalog, error) {
	exists, err := hasAnyTransaction(ctx, store, scheme)
	if err != nil {
		return nil, fmt.Errorf("catalog: check for existing transaction log: %w", err)
	}
	if exists {
		return nil, catalogerr.ErrOpenEmptyCatalogExists
	}

	return &Catalog{
		store:        store,
		scheme:       scheme,
		stateFactory: stateFactory,
		state:        stateFactory(init),
		logger:       logging.Default(logger).With("component", "catalog"),
	}, nil
}

func hasAnyTransaction(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme) (bool, error) {
	found := false
	sentinel := errors.New("found")
	err := store.List(ctx, scheme.TransactionsRoot(), func(objectstore.ObjectMeta) error {
		found = true
		return sentinel
	})
	if err != nil && !errors.Is(err, sentinel) {
		return false, err
	}
	return found, nil
}

// Load lists transaction objects, checks for a gap-free linear history,
// and replays them into a fresh state. found is false if no transaction
// objects exist at all, in which case the catalog must be created with
// NewEmpty instead.
func Load(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme, stateFactory catalogstate.Factory, init any, logger *slog.Logger) (cat *Catalog, found bool, err error) {
	groups, err := listTransactionsByRevision(ctx, store, scheme)
	if err != nil {
		return nil, false, err
	}
	if len(groups) == 0 {
		return nil, false, nil
	}

	maxRevision := uint64(0)
	for r := range groups {
		if r > maxRevision {
			maxRevision = r
		}
	}

	state := stateFactory(init)
	var previousUUID uuid.UUID
	var hasPrevious bool

	for r := uint64(1); r <= maxRevision; r++ {
		keys, ok := groups[r]
		if !ok || len(keys) == 0 {
			return nil, false, fmt.Errorf("catalog: load: %w", &catalogerr.CatalogLoadCorruptError{
				Revision: r,
				Cause:    fmt.Errorf("gap in transaction log: no transaction record at revision %d", r),
			})
		}

		record, err := loadAndCheckDivergence(ctx, store, r, keys)
		if err != nil {
			return nil, false, err
		}

		if hasPrevious {
			if record.PreviousUUID == nil || *record.PreviousUUID != previousUUID {
				return nil, false, fmt.Errorf("catalog: load: %w", &catalogerr.CatalogLoadCorruptError{
					Revision: r,
					Cause:    errors.New("previous_uuid does not match predecessor's uuid"),
				})
			}
		}

		if err := applyActions(state, record.Actions); err != nil {
			return nil, false, fmt.Errorf("catalog: load: %w", &catalogerr.CatalogLoadCorruptError{Revision: r, Cause: err})
		}

		previousUUID = record.UUID
		hasPrevious = true
	}

	cat = &Catalog{
		store:        store,
		scheme:       scheme,
		stateFactory: stateFactory,
		state:        state,
		revision:     maxRevision,
		currentUUID:  previousUUID,
		hasCommits:   hasPrevious,
		logger:       logging.Default(logger).With("component", "catalog"),
	}
	return cat, true, nil
}

// listTransactionsByRevision groups every transaction key under scheme's
// transactions root by revision.
func listTransactionsByRevision(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme) (map[uint64][]objectstore.Path, error) {
	groups := make(map[uint64][]objectstore.Path)
	err := store.List(ctx, scheme.TransactionsRoot(), func(m objectstore.ObjectMeta) error {
		revision, _, err := scheme.ParseTransactionKey(m.Location)
		if err != nil {
			return fmt.Errorf("catalog: unexpected object under transactions root: %w", err)
		}
		groups[revision] = append(groups[revision], m.Location)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list transactions: %w", err)
	}
	return groups, nil
}

// loadAndCheckDivergence fetches and decodes the single transaction
// record expected at revision r. More than one sibling key at the same
// revision is a fatal divergence, matching the rebuild engine's own
// MultipleTransactions detection.
func loadAndCheckDivergence(ctx context.Context, store objectstore.Store, revision uint64, keys []objectstore.Path) (transactionRecord, error) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	first, err := getAndDecode(ctx, store, keys[0])
	if err != nil {
		return transactionRecord{}, err
	}

	if len(keys) > 1 {
		second, err := getAndDecode(ctx, store, keys[1])
		if err != nil {
			return transactionRecord{}, err
		}
		if first.UUID != second.UUID {
			return transactionRecord{}, catalogerr.NewMultipleTransactionsError(revision, first.UUID, second.UUID)
		}
	}

	return first, nil
}

func getAndDecode(ctx context.Context, store objectstore.Store, key objectstore.Path) (transactionRecord, error) {
	r, err := store.Get(ctx, key)
	if err != nil {
		return transactionRecord{}, fmt.Errorf("catalog: read %s: %w", key, &catalogerr.StoreReadError{Cause: err})
	}
	defer r.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return transactionRecord{}, fmt.Errorf("catalog: read %s: %w", key, &catalogerr.StoreReadError{Cause: err})
	}

	record, err := decodeRecord(buf.Bytes())
	if err != nil {
		return transactionRecord{}, err
	}
	return record, nil
}

// Wipe deletes every transaction object under scheme's transactions root.
// Idempotent; chunk data files are untouched.
func Wipe(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme) error {
	var keys []objectstore.Path
	err := store.List(ctx, scheme.TransactionsRoot(), func(m objectstore.ObjectMeta) error {
		keys = append(keys, m.Location)
		return nil
	})
	if err != nil {
		return fmt.Errorf("catalog: wipe: list: %w", err)
	}
	for _, k := range keys {
		if err := store.Delete(ctx, k); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
			return fmt.Errorf("catalog: wipe: delete %s: %w", k, err)
		}
	}
	return nil
}

// RevisionCounter returns the highest revision successfully committed, or
// 0 if none.
func (c *Catalog) RevisionCounter() uint64 {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.revision
}

// State returns the last committed catalog state. Callers observe a
// momentary snapshot; it does not block a concurrently open transaction
// beyond that.
func (c *Catalog) State() catalogstate.State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}
