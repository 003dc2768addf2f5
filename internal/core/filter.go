package core

import (
	"fmt"
	"sort"
	"strings"

	"closetfit/pkg/domain"
)

// Catalog sort orders.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortName   = "name"
)

// Filter narrows a catalog listing. Zero values match everything and sort
// newest first.
type Filter struct {
	Category domain.Category `json:"category,omitempty"`
	Search   string          `json:"search,omitempty"`
	Sort     string          `json:"sort,omitempty"`
}

// Validate rejects unknown categories and sort orders.
func (f Filter) Validate() error {
	if f.Category != "" && !f.Category.Valid() {
		return fmt.Errorf("unknown category %q", f.Category)
	}
	switch f.Sort {
	case "", SortNewest, SortOldest, SortName:
		return nil
	default:
		return fmt.Errorf("unknown sort %q", f.Sort)
	}
}

// Match reports whether it passes the category and name search.
func (f Filter) Match(it domain.Item) bool {
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		return strings.Contains(strings.ToLower(it.Name), strings.ToLower(q))
	}
	return true
}

// Apply returns the matching items in the requested order. items is not modified.
func (f Filter) Apply(items []domain.Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	var less func(a, b domain.Item) bool
	switch f.Sort {
	case SortOldest:
		less = func(a, b domain.Item) bool { return a.UploadedAt.Before(b.UploadedAt) }
	case SortName:
		less = func(a, b domain.Item) bool {
			return strings.ToLower(a.DisplayName()) < strings.ToLower(b.DisplayName())
		}
	default:
		less = func(a, b domain.Item) bool { return a.UploadedAt.After(b.UploadedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}
