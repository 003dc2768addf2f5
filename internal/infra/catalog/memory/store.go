// Package memory holds the catalog in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"closetfit/internal/core"
	"closetfit/pkg/domain"
)

// Store is a concurrency-safe in-memory catalog.
type Store struct {
	mu    sync.RWMutex
	items map[string]domain.Item
}

// New returns a catalog seeded with items.
func New(items ...domain.Item) *Store {
	s := &Store{items: make(map[string]domain.Item, len(items))}
	for _, it := range items {
		s.items[it.ID] = cloneItem(it)
	}
	return s
}

// FetchItem implements core.Catalog.
func (s *Store) FetchItem(_ context.Context, id string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return cloneItem(it), nil
}

// FetchAllItems implements core.Catalog.
func (s *Store) FetchAllItems(_ context.Context, f core.Filter) ([]domain.Item, error) {
	s.mu.RLock()
	all := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		all = append(all, cloneItem(it))
	}
	s.mu.RUnlock()
	return f.Apply(all), nil
}

// Put inserts or replaces an item.
func (s *Store) Put(_ context.Context, it domain.Item) error {
	if it.ID == "" {
		return fmt.Errorf("item id required")
	}
	s.mu.Lock()
	s.items[it.ID] = cloneItem(it)
	s.mu.Unlock()
	return nil
}

// Delete removes an item and reports whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneItem(it domain.Item) domain.Item {
	it.Tags = append([]string(nil), it.Tags...)
	return it
}
