// Package sqlite opens the catalog in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"closetfit/internal/infra/catalog/sqlstore"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "closetfit.db"

// Open creates parent directories, opens path and applies the schema.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)
	store, err := sqlstore.New(ctx, db, sqlstore.Question)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
