// Package chunkwriter implements the chunk writer: it serializes a stream
// of rows into a columnar file whose footer carries catalog metadata, and
// publishes the result as a single object under the path scheme's key.
package chunkwriter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"catalogstore/internal/catalogpath"
	"catalogstore/internal/chunkmeta"
	"catalogstore/internal/columnar"
	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
)

// Writer publishes chunk files through a path Scheme onto a Store. It
// holds no state beyond its collaborators and is safe for concurrent use
// (individual writes are independent objects).
type Writer struct {
	store  objectstore.Store
	scheme catalogpath.Scheme
	logger *slog.Logger
}

// New creates a Writer bound to store under scheme.
func New(store objectstore.Store, scheme catalogpath.Scheme, logger *slog.Logger) *Writer {
	return &Writer{
		store:  store,
		scheme: scheme,
		logger: logging.Default(logger).With("component", "chunkwriter"),
	}
}

// Result is what Write hands back: the published object's key and the
// parsed footer, so the caller never has to re-download what it just
// uploaded.
type Result struct {
	Key    objectstore.Path
	Footer columnar.FooterSummary
}

// Write atomically publishes one chunk object at
// (partitionKey, chunkID, tableName) containing rows, with meta embedded
// in the file footer under chunkmeta.MetadataKey.
//
// Algorithm: encode meta, drain rows through the columnar writer with the
// encoded metadata as a writer property, parse the produced footer
// locally, then upload the full buffer as a single object. A partially
// uploaded object can never exist: Put only runs once the whole buffer is
// in memory.
func (w *Writer) Write(ctx context.Context, partitionKey string, chunkID uint32, tableName string, rows []columnar.Row, meta chunkmeta.Metadata) (Result, error) {
	if err := meta.Validate(); err != nil {
		return Result{}, fmt.Errorf("chunkwriter: invalid metadata: %w", err)
	}

	kv, err := chunkmeta.EmbedIn(meta)
	if err != nil {
		return Result{}, fmt.Errorf("chunkwriter: embed metadata: %w", err)
	}

	data, footer, err := columnar.WriteFile(rows, kv)
	if err != nil {
		return Result{}, fmt.Errorf("chunkwriter: encode rows: %w", err)
	}

	key := w.scheme.Location(partitionKey, chunkID, tableName)
	if err := w.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return Result{}, fmt.Errorf("chunkwriter: upload %s: %w", key, err)
	}

	w.logger.Debug("wrote chunk", "key", key.String(), "rows", len(rows),
		"revision", meta.TransactionRevisionCounter, "uuid", meta.TransactionUUID)

	return Result{Key: key, Footer: footer}, nil
}

// ReadMetadata downloads the object at key and extracts its embedded
// catalog metadata, for use by the rebuild engine's scan step.
func (w *Writer) ReadMetadata(ctx context.Context, key objectstore.Path) (chunkmeta.Metadata, error) {
	r, err := w.store.Get(ctx, key)
	if err != nil {
		return chunkmeta.Metadata{}, fmt.Errorf("chunkwriter: read %s: %w", key, err)
	}
	defer r.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return chunkmeta.Metadata{}, fmt.Errorf("chunkwriter: read %s: %w", key, err)
	}

	kv, err := columnar.ReadFooterMetadata(buf.Bytes())
	if err != nil {
		return chunkmeta.Metadata{}, fmt.Errorf("chunkwriter: parse footer of %s: %w", key, err)
	}

	return chunkmeta.ReadFromFooter(kv)
}
