// Package rebuild reconstructs a preserved catalog purely from the chunk
// files already sitting in the object store, for the case where the
// transaction log itself is lost or was never written. It scans for
// parquet files under a database's data root, reads the catalog metadata
// embedded in each footer, groups the files by the revision they claim,
// and replays them into a fresh catalog in revision order.
package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"catalogstore/internal/catalog"
	"catalogstore/internal/catalogerr"
	"catalogstore/internal/catalogpath"
	"catalogstore/internal/catalogstate"
	"catalogstore/internal/chunkmeta"
	"catalogstore/internal/chunkwriter"
	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
)

// metadataReader is the subset of chunkwriter.Writer rebuild depends on,
// so tests can substitute a reader that fails on demand.
type metadataReader interface {
	ReadMetadata(ctx context.Context, key objectstore.Path) (chunkmeta.Metadata, error)
}

// candidate is one parquet file discovered during the scan step, paired
// with the metadata read back from its footer.
type candidate struct {
	key  objectstore.Path
	meta chunkmeta.Metadata
}

// Options controls the rebuild algorithm's tolerance for unreadable
// files.
type Options struct {
	// IgnoreMetadataReadFailure, when true, downgrades a chunk file whose
	// footer metadata cannot be read into a logged skip rather than a
	// fatal error. Files that parse but advertise revision 0, or that
	// collide with a sibling at the same revision under a different
	// uuid, are never downgraded: those are always fatal.
	IgnoreMetadataReadFailure bool

	// Concurrency bounds how many chunk files are read concurrently
	// during the metadata scan. Zero selects a small default.
	Concurrency int

	// TableGlob, if non-empty, restricts the scan to parquet files whose
	// table name (the final path segment, without extension) matches this
	// doublestar pattern. Empty matches every table.
	TableGlob string
}

const defaultConcurrency = 8

// Rebuild scans every parquet file under scheme's data root, reconstructs
// the revision history their embedded metadata implies, and returns a new
// Catalog whose committed state matches exactly what a correctly
// functioning transaction log would have recorded.
func Rebuild(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme, stateFactory catalogstate.Factory, init any, opts Options, logger *slog.Logger) (*catalog.Catalog, error) {
	logger = logging.Default(logger).With("component", "rebuild")

	keys, err := scan(ctx, store, scheme, opts.TableGlob)
	if err != nil {
		return nil, fmt.Errorf("rebuild: scan: %w", err)
	}
	logger.Info("scan complete", "candidates", len(keys))

	reader := chunkwriter.New(store, scheme, logger)
	candidates, err := readMetadata(ctx, reader, keys, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("rebuild: read metadata: %w", err)
	}
	logger.Info("metadata read complete", "usable", len(candidates))

	groups, maxRevision, err := group(candidates)
	if err != nil {
		return nil, fmt.Errorf("rebuild: group: %w", err)
	}

	return reconstruct(ctx, store, scheme, stateFactory, init, groups, maxRevision, logger)
}

// scan lists every object under scheme's data root and filters it down to
// parquet file candidates, optionally restricted to tables matching
// tableGlob.
func scan(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme, tableGlob string) ([]objectstore.Path, error) {
	var keys []objectstore.Path
	err := store.List(ctx, scheme.DataRoot(), func(m objectstore.ObjectMeta) error {
		if !catalogpath.IsParquetFile(m.Location) {
			return nil
		}
		if tableGlob != "" {
			_, _, table, err := scheme.Parse(m.Location)
			if err != nil {
				return nil
			}
			matched, err := doublestar.Match(tableGlob, table)
			if err != nil || !matched {
				return nil
			}
		}
		keys = append(keys, m.Location)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// readMetadata downloads and parses the footer metadata of every
// candidate key, bounded to opts.Concurrency readers at a time. A
// metadata read failure is either fatal or a logged skip depending on
// opts.IgnoreMetadataReadFailure; a successfully parsed revision-0 value
// is always fatal, per I5.
func readMetadata(ctx context.Context, reader metadataReader, keys []objectstore.Path, opts Options, logger *slog.Logger) ([]candidate, error) {
	logger = logging.Default(logger)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]*candidate, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			meta, err := reader.ReadMetadata(gctx, key)
			if err != nil {
				if opts.IgnoreMetadataReadFailure {
					logger.Warn("skipping chunk file with unreadable metadata", "key", key.String(), "error", err)
					return nil
				}
				return fmt.Errorf("%w", &catalogerr.MetadataReadFailureError{Path: key.String(), Cause: err})
			}
			if err := meta.Validate(); err != nil {
				return fmt.Errorf("%w", &catalogerr.RevisionZeroError{Path: key.String()})
			}
			results[i] = &candidate{key: key, meta: meta}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// revisionGroup is every chunk file that claims a given revision, plus
// the single uuid they must all agree on.
type revisionGroup struct {
	uuid  uuid.UUID
	files []candidate
}

// group buckets candidates by their claimed revision and checks that
// every file in a bucket agrees on the transaction uuid. Divergence is
// reported the same way the preserved catalog's own Load does, via
// catalogerr.MultipleTransactionsError.
func group(candidates []candidate) (map[uint64]revisionGroup, uint64, error) {
	groups := make(map[uint64]revisionGroup)
	var maxRevision uint64

	for _, c := range candidates {
		rev := c.meta.TransactionRevisionCounter
		if rev > maxRevision {
			maxRevision = rev
		}

		existing, ok := groups[rev]
		if !ok {
			groups[rev] = revisionGroup{uuid: c.meta.TransactionUUID, files: []candidate{c}}
			continue
		}
		if existing.uuid != c.meta.TransactionUUID {
			return nil, 0, catalogerr.NewMultipleTransactionsError(rev, existing.uuid, c.meta.TransactionUUID)
		}
		existing.files = append(existing.files, c)
		groups[rev] = existing
	}

	return groups, maxRevision, nil
}

// reconstruct replays revisions 1..maxRevision in order into a fresh,
// empty catalog. A revision with no chunk files is replayed as an empty
// transaction, preserving the gap-free linear history the preserved
// catalog's Load step requires.
func reconstruct(ctx context.Context, store objectstore.Store, scheme catalogpath.Scheme, stateFactory catalogstate.Factory, init any, groups map[uint64]revisionGroup, maxRevision uint64, logger *slog.Logger) (*catalog.Catalog, error) {
	if err := catalog.Wipe(ctx, store, scheme); err != nil {
		return nil, fmt.Errorf("rebuild: wipe existing transaction log: %w", err)
	}

	cat, err := catalog.NewEmpty(ctx, store, scheme, stateFactory, init, logger)
	if err != nil {
		return nil, fmt.Errorf("rebuild: create empty catalog: %w", err)
	}

	for rev := uint64(1); rev <= maxRevision; rev++ {
		g, hasFiles := groups[rev]

		var tx *catalog.Transaction
		if hasFiles {
			tx = cat.OpenTransactionWithUUID(g.uuid)
			for _, f := range sortedByKey(g.files) {
				if err := tx.AddParquet(f.key, catalogstate.FileFooterSummary{}); err != nil {
					tx.Abort()
					return nil, fmt.Errorf("rebuild: stage revision %d: %w", rev, err)
				}
			}
		} else {
			tx = cat.OpenTransaction()
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("rebuild: commit revision %d: %w", rev, err)
		}
	}

	logger.Info("rebuild complete", "revision", cat.RevisionCounter(), "files", len(cat.State().Keys()))
	return cat, nil
}

func sortedByKey(files []candidate) []candidate {
	out := make([]candidate, len(files))
	copy(out, files)
	sort.Slice(out, func(i, j int) bool { return out[i].key.String() < out[j].key.String() })
	return out
}
