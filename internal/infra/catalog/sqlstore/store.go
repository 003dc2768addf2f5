// Package sqlstore implements the catalog over database/sql. The sqlite and
// postgres packages supply the connection and placeholder dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"closetfit/internal/core"
	"closetfit/pkg/domain"
)

// Schema creates the catalog table. It is valid for SQLite and PostgreSQL.
const Schema = `CREATE TABLE IF NOT EXISTS clothing_items (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	original_url TEXT NOT NULL DEFAULT '',
	processed_url TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	file_size BIGINT NOT NULL DEFAULT 0,
	uploaded_at BIGINT NOT NULL DEFAULT 0
)`

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders "?" placeholders.
func Question(int) string { return "?" }

// Dollar renders "$n" placeholders.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Store is a database/sql backed catalog.
type Store struct {
	db *sql.DB
	ph Placeholder
}

// New applies the schema and returns a store. The store owns db.
func New(ctx context.Context, db *sql.DB, ph Placeholder) (*Store, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("create clothing_items: %w", err)
	}
	return &Store{db: db, ph: ph}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

const columns = `id, name, category, original_url, processed_url, thumbnail_url, tags, file_size, uploaded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (domain.Item, error) {
	var (
		it       domain.Item
		category string
		tags     string
		uploaded int64
	)
	if err := row.Scan(&it.ID, &it.Name, &category, &it.OriginalURL, &it.ProcessedURL, &it.ThumbnailURL, &tags, &it.FileSize, &uploaded); err != nil {
		return domain.Item{}, err
	}
	it.Category = domain.Category(category)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			return domain.Item{}, fmt.Errorf("decode tags for %s: %w", it.ID, err)
		}
	}
	if uploaded != 0 {
		it.UploadedAt = time.UnixMicro(uploaded).UTC()
	}
	return it, nil
}

// FetchItem implements core.Catalog.
func (s *Store) FetchItem(ctx context.Context, id string) (domain.Item, error) {
	q := `SELECT ` + columns + ` FROM clothing_items WHERE id = ` + s.ph(1)
	it, err := scanItem(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("select item %s: %w", id, err)
	}
	return it, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// FetchAllItems implements core.Catalog with filtering and ordering done in SQL.
func (s *Store) FetchAllItems(ctx context.Context, f core.Filter) ([]domain.Item, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, string(f.Category))
		where = append(where, "category = "+s.ph(len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
		where = append(where, "LOWER(name) LIKE "+s.ph(len(args))+` ESCAPE '\'`)
	}
	query := `SELECT ` + columns + ` FROM clothing_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch f.Sort {
	case core.SortOldest:
		query += " ORDER BY uploaded_at ASC, id ASC"
	case core.SortName:
		query += " ORDER BY LOWER(CASE WHEN TRIM(name) = '' THEN 'Unnamed Item' ELSE name END) ASC, id ASC"
	default:
		query += " ORDER BY uploaded_at DESC, id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Put upserts an item.
func (s *Store) Put(ctx context.Context, it domain.Item) error {
	if it.ID == "" {
		return fmt.Errorf("item id required")
	}
	tags, err := json.Marshal(append([]string{}, it.Tags...))
	if err != nil {
		return err
	}
	var uploaded int64
	if !it.UploadedAt.IsZero() {
		uploaded = it.UploadedAt.UnixMicro()
	}
	ph := make([]string, 9)
	for i := range ph {
		ph[i] = s.ph(i + 1)
	}
	q := `INSERT INTO clothing_items (` + columns + `) VALUES (` + strings.Join(ph, ", ") + `)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		category = excluded.category,
		original_url = excluded.original_url,
		processed_url = excluded.processed_url,
		thumbnail_url = excluded.thumbnail_url,
		tags = excluded.tags,
		file_size = excluded.file_size,
		uploaded_at = excluded.uploaded_at`
	if _, err := s.db.ExecContext(ctx, q, it.ID, it.Name, string(it.Category), it.OriginalURL, it.ProcessedURL, it.ThumbnailURL, string(tags), it.FileSize, uploaded); err != nil {
		return fmt.Errorf("upsert item %s: %w", it.ID, err)
	}
	return nil
}

// Delete removes an item and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clothing_items WHERE id = `+s.ph(1), id)
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }
