// Package store persists enrichment records between scorecard runs.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/elonfeng/scorecard/pkg/enrich"
)

// Backend names a cache implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// Entry is a cached record with its key and write time.
type Entry struct {
	Key       string        `json:"key"`
	Record    enrich.Record `json:"record"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Store is an enrichment cache that can also be listed and pruned.
type Store interface {
	enrich.Cache
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store for backend. location is a directory for the file
// backend and a DSN (or SQLite path) for the SQL backends.
func Open(ctx context.Context, backend Backend, location string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(location)
	case BackendSQLite, BackendPostgres:
		return NewSQLStore(ctx, backend, location)
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported cache backend: %s", backend)
}
