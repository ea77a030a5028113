package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Factory parameter keys, shared across the "kind"-selected backends below.
const (
	ParamKind       = "kind" // "memory", "disk", "s3", "gcs", "azure"
	ParamDir        = "dir"
	ParamBucket     = "bucket"
	ParamContainer  = "container"
	ParamServiceURL = "serviceURL"
	ParamFileMode   = "fileMode"
)

// Factory constructs a Store from configuration parameters, mirroring the
// parameter-map factory pattern used for every other pluggable backend in
// this module. Factories validate required params, apply defaults, and
// return a fully constructed Store or a descriptive error. Factories must
// not be relied upon to perform long-lived I/O beyond what is needed to
// validate and connect.
type Factory func(ctx context.Context, params map[string]string, logger *slog.Logger) (Store, error)

// Backend constructors are registered here rather than imported directly so
// that this package does not have to depend on every cloud SDK; callers
// building a catalogctl-style CLI register the backends they actually want.
type BackendConstructor func(ctx context.Context, params map[string]string, logger *slog.Logger) (Store, error)

// Registry maps backend kind names to their constructors.
type Registry struct {
	backends map[string]BackendConstructor
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]BackendConstructor)}
}

// Register adds a backend constructor under the given kind name.
func (r *Registry) Register(kind string, ctor BackendConstructor) {
	r.backends[kind] = ctor
}

// Factory returns a Factory that dispatches on ParamKind using this
// registry's constructors.
func (r *Registry) Factory() Factory {
	return func(ctx context.Context, params map[string]string, logger *slog.Logger) (Store, error) {
		kind, ok := params[ParamKind]
		if !ok || kind == "" {
			return nil, fmt.Errorf("objectstore: missing required parameter %q", ParamKind)
		}
		ctor, ok := r.backends[kind]
		if !ok {
			return nil, fmt.Errorf("objectstore: unknown backend kind %q", kind)
		}
		return ctor(ctx, params, logger)
	}
}

// ParseFileMode parses a ParamFileMode value, defaulting to defaultMode
// when the parameter is absent.
func ParseFileMode(params map[string]string, defaultMode os.FileMode) (os.FileMode, error) {
	v, ok := params[ParamFileMode]
	if !ok || v == "" {
		return defaultMode, nil
	}
	var n uint32
	_, err := fmt.Sscanf(v, "%o", &n)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", ParamFileMode, err)
	}
	return os.FileMode(n), nil
}
