// Package storage is the export sink for completed datasets. Backends
// register themselves by kind from an init function; import
// dataingest/internal/storage/all to get every backend.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Config selects and connects a backend.
type Config struct {
	Kind string
	DSN  string
}

// Repository writes one table at a time.
//
// Each backend maps the logical ColumnType to its own SQL type and quotes
// identifiers its own way.
type Repository interface {
	// Close releases connections. Call it once.
	Close()

	// EnsureTable creates t if it does not exist. With t.Replace set an
	// existing table is dropped first.
	EnsureTable(ctx context.Context, t TableSpec) error

	// InsertRows appends rows to table. Every row has one value per column;
	// values are nil, bool, int64, float64 or string.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Factory opens a backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind.
//
// Panics if kind is empty, f is nil or kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic("storage: factory already registered for kind=" + kind)
	}
	factories[kind] = f
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the backend registered under cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		return nil, errors.New("storage: missing kind")
	}

	mu.RLock()
	f := factories[kind]
	mu.RUnlock()

	if f == nil {
		return nil, errors.WithHintf(
			errors.Newf("storage: unsupported kind %q", cfg.Kind),
			"registered kinds: %s", strings.Join(Kinds(), ", "),
		)
	}
	return f(ctx, cfg)
}
