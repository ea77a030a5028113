package catalog

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"catalogstore/internal/catalogerr"
	"catalogstore/internal/catalogstate"
	"catalogstore/internal/objectstore"
)

type stagedAction struct {
	Key     objectstore.Path
	Summary catalogstate.FileFooterSummary
}

// Transaction stages chunk additions on top of a Catalog's current state.
// At most one Transaction is open per Catalog at a time: OpenTransaction
// acquires the catalog's single-writer guard, and it is released on
// Commit or Abort.
//
// State machine: Open -> (AddParquet)* -> Committed, or Open -> Aborted.
// Both Committed and Aborted are terminal; further calls return
// ErrTransactionClosed.
type Transaction struct {
	catalog      *Catalog
	revision     uint64
	uuid         uuid.UUID
	previousUUID *uuid.UUID
	snapshot     catalogstate.State
	actions      []stagedAction
	done         bool
}

// OpenTransaction stages a new transaction on top of c's current
// committed state, assigning a fresh random transaction uuid.
func (c *Catalog) OpenTransaction() *Transaction {
	return c.openTransaction(uuid.New())
}

// OpenTransactionWithUUID is identical to OpenTransaction but uses a
// caller-supplied uuid instead of a fresh one. This exists exclusively for
// the rebuild engine, which must reproduce the original transaction's
// uuid exactly.
func (c *Catalog) OpenTransactionWithUUID(u uuid.UUID) *Transaction {
	return c.openTransaction(u)
}

func (c *Catalog) openTransaction(txnUUID uuid.UUID) *Transaction {
	c.writerGuard.Lock()

	c.stateMu.RLock()
	snapshot := c.state.Clone()
	nextRevision := c.revision + 1
	var previousUUID *uuid.UUID
	if c.hasCommits {
		prev := c.currentUUID
		previousUUID = &prev
	}
	c.stateMu.RUnlock()

	return &Transaction{
		catalog:      c,
		revision:     nextRevision,
		uuid:         txnUUID,
		previousUUID: previousUUID,
		snapshot:     snapshot,
	}
}

// AddParquet stages one chunk addition: updates the transaction's
// snapshot state via catalogstate.State.Add and records the action for
// the eventual transaction record.
func (tx *Transaction) AddParquet(key objectstore.Path, summary catalogstate.FileFooterSummary) error {
	if tx.done {
		return ErrTransactionClosed
	}
	if err := tx.snapshot.Add(key, summary); err != nil {
		return fmt.Errorf("catalog: stage add %s: %w", key, err)
	}
	tx.actions = append(tx.actions, stagedAction{Key: key.Clone(), Summary: summary})
	return nil
}

// Revision returns the revision this transaction will become if
// committed.
func (tx *Transaction) Revision() uint64 { return tx.revision }

// UUID returns this transaction's uuid.
func (tx *Transaction) UUID() uuid.UUID { return tx.uuid }

// Commit builds the transaction record, writes it to
// <server>/<db>/transactions/<revision>/<uuid>.txn, and on success
// advances the catalog's committed state and revision counter to this
// transaction's. On failure the catalog is left unchanged and the
// snapshot is discarded; the caller may retry with a new transaction.
func (tx *Transaction) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTransactionClosed
	}

	record := transactionRecord{
		RevisionCounter: tx.revision,
		UUID:            tx.uuid,
		PreviousUUID:    tx.previousUUID,
		Actions:         actionsFrom(tx.actions),
	}
	data, err := encodeRecord(record)
	if err != nil {
		tx.release()
		return err
	}

	key := tx.catalog.scheme.TransactionKey(tx.revision, tx.uuid.String())
	if err := tx.catalog.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		tx.release()
		return fmt.Errorf("catalog: commit: %w", &catalogerr.StoreWriteError{Cause: err})
	}

	tx.catalog.stateMu.Lock()
	tx.catalog.revision = tx.revision
	tx.catalog.state = tx.snapshot
	tx.catalog.currentUUID = tx.uuid
	tx.catalog.hasCommits = true
	tx.catalog.stateMu.Unlock()

	tx.catalog.logger.Debug("committed transaction", "revision", tx.revision, "uuid", tx.uuid, "actions", len(tx.actions))

	tx.release()
	return nil
}

// Abort discards the transaction. The persistent store is left untouched.
func (tx *Transaction) Abort() error {
	if tx.done {
		return ErrTransactionClosed
	}
	tx.release()
	return nil
}

func (tx *Transaction) release() {
	tx.done = true
	tx.catalog.writerGuard.Unlock()
}
