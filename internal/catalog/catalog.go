// Package catalog opens the configured item catalog and imports YAML seed files.
package catalog

import (
	"context"
	"fmt"

	"closetfit/internal/core"
	"closetfit/internal/infra/catalog/memory"
	"closetfit/internal/infra/catalog/postgres"
	"closetfit/internal/infra/catalog/sqlite"
	"closetfit/internal/infra/catalog/sqlstore"
	"closetfit/pkg/domain"
)

// Driver identifies a catalog backend.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Store is a catalog the composer can read and the CLI can write.
type Store interface {
	core.Catalog
	Put(ctx context.Context, it domain.Item) error
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlstore.Store)(nil)
)

// Config selects a backend.
type Config struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the catalog named by cfg.Driver; sqlite is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", driver)
	}
}
