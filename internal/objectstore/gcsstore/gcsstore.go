// Package gcsstore implements objectstore.Store on top of Google Cloud
// Storage.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
)

// Store is a GCS-backed objectstore.Store. Path segments are joined with
// "/" to form the GCS object name within a single bucket.
type Store struct {
	bucket *storage.BucketHandle
	logger *slog.Logger
}

// New creates a Store for the named bucket using application default
// credentials.
func New(ctx context.Context, bucketName string, logger *slog.Logger) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: new client: %w", err)
	}
	return &Store{
		bucket: client.Bucket(bucketName),
		logger: logging.Default(logger).With("component", "gcsstore"),
	}, nil
}

func objectName(location objectstore.Path) string {
	return strings.Join(location, "/")
}

func (s *Store) Put(ctx context.Context, location objectstore.Path, r io.Reader) error {
	w := s.bucket.Object(objectName(location)).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gcsstore: write %s: %w", location, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcsstore: close writer for %s: %w", location, err)
	}
	s.logger.Debug("put object", "name", objectName(location))
	return nil
}

func (s *Store) Get(ctx context.Context, location objectstore.Path) (io.ReadCloser, error) {
	r, err := s.bucket.Object(objectName(location)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, objectstore.ErrNotFound
		}
		return nil, fmt.Errorf("gcsstore: get %s: %w", location, err)
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, location objectstore.Path) error {
	err := s.bucket.Object(objectName(location)).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return objectstore.ErrNotFound
		}
		return fmt.Errorf("gcsstore: delete %s: %w", location, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix objectstore.Path, fn func(objectstore.ObjectMeta) error) error {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: objectName(prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gcsstore: list %s: %w", prefix, err)
		}
		loc := objectstore.Path(strings.Split(attrs.Name, "/"))
		if err := fn(objectstore.ObjectMeta{Location: loc, Size: attrs.Size}); err != nil {
			return err
		}
	}
}
