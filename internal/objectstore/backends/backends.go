// Package backends wires every objectstore.Store implementation into a
// Registry keyed by the "kind" factory parameter, for use by a CLI or any
// other caller that selects a backend at runtime rather than at compile
// time.
package backends

import (
	"context"
	"fmt"
	"log/slog"

	"catalogstore/internal/objectstore"
	"catalogstore/internal/objectstore/azstore"
	"catalogstore/internal/objectstore/diskstore"
	"catalogstore/internal/objectstore/gcsstore"
	"catalogstore/internal/objectstore/memstore"
	"catalogstore/internal/objectstore/s3store"
)

const (
	kindMemory = "memory"
	kindDisk   = "disk"
	kindS3     = "s3"
	kindGCS    = "gcs"
	kindAzure  = "azure"
)

// NewRegistry returns a Registry with every built-in backend registered.
func NewRegistry() *objectstore.Registry {
	r := objectstore.NewRegistry()
	r.Register(kindMemory, newMemory)
	r.Register(kindDisk, newDisk)
	r.Register(kindS3, newS3)
	r.Register(kindGCS, newGCS)
	r.Register(kindAzure, newAzure)
	return r
}

func newMemory(_ context.Context, _ map[string]string, _ *slog.Logger) (objectstore.Store, error) {
	return memstore.New(), nil
}

func newDisk(_ context.Context, params map[string]string, _ *slog.Logger) (objectstore.Store, error) {
	dir, ok := params[objectstore.ParamDir]
	if !ok || dir == "" {
		return nil, fmt.Errorf("objectstore/backends: disk backend requires %q", objectstore.ParamDir)
	}
	mode, err := objectstore.ParseFileMode(params, diskstore.DefaultFileMode)
	if err != nil {
		return nil, err
	}
	return diskstore.New(dir, mode)
}

func newS3(ctx context.Context, params map[string]string, logger *slog.Logger) (objectstore.Store, error) {
	bucket, ok := params[objectstore.ParamBucket]
	if !ok || bucket == "" {
		return nil, fmt.Errorf("objectstore/backends: s3 backend requires %q", objectstore.ParamBucket)
	}
	return s3store.New(ctx, bucket, logger)
}

func newGCS(ctx context.Context, params map[string]string, logger *slog.Logger) (objectstore.Store, error) {
	bucket, ok := params[objectstore.ParamBucket]
	if !ok || bucket == "" {
		return nil, fmt.Errorf("objectstore/backends: gcs backend requires %q", objectstore.ParamBucket)
	}
	return gcsstore.New(ctx, bucket, logger)
}

const paramConnectionString = "connectionString"

func newAzure(_ context.Context, params map[string]string, logger *slog.Logger) (objectstore.Store, error) {
	container, ok := params[objectstore.ParamContainer]
	if !ok || container == "" {
		return nil, fmt.Errorf("objectstore/backends: azure backend requires %q", objectstore.ParamContainer)
	}
	connStr, ok := params[paramConnectionString]
	if !ok || connStr == "" {
		return nil, fmt.Errorf("objectstore/backends: azure backend requires %q", paramConnectionString)
	}
	return azstore.NewFromConnectionString(connStr, container, logger)
}
