// Package domain defines the catalog item references, outfit slots, typed
// composition errors and rule evaluation primitives used by closetfit.
package domain

import (
	"strings"
	"time"
)

// Category classifies a catalog item and decides which outfit slot it routes to.
type Category string

// Categories recognised by the slot router. Anything else is unsupported.
const (
	CategoryTop       Category = "top"
	CategoryOuterwear Category = "outerwear"
	CategoryBottom    Category = "bottom"
	CategoryShoes     Category = "shoes"
	CategoryHat       Category = "hat"
	CategoryAccessory Category = "accessory"
	CategoryOther     Category = "other"
)

// Categories lists every supported category in catalog display order.
var Categories = []Category{
	CategoryHat,
	CategoryTop,
	CategoryOuterwear,
	CategoryBottom,
	CategoryShoes,
	CategoryAccessory,
	CategoryOther,
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryOuterwear, CategoryBottom, CategoryShoes,
		CategoryHat, CategoryAccessory, CategoryOther:
		return true
	default:
		return false
	}
}

// ParseCategory normalises raw input (case and surrounding whitespace) into a Category.
// The returned bool is false when the value is empty or unrecognised.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	return c, c.Valid()
}

// Item is an immutable reference to a catalog entry. The catalog owns it; the
// outfit holds pointers to fetched items and never copies or edits them.
type Item struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name,omitempty" yaml:"name"`
	Category     Category  `json:"category,omitempty" yaml:"category"`
	OriginalURL  string    `json:"original_url,omitempty" yaml:"original_url"`
	ProcessedURL string    `json:"processed_url,omitempty" yaml:"processed_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" yaml:"thumbnail_url"`
	Tags         []string  `json:"tags,omitempty" yaml:"tags"`
	FileSize     int64     `json:"file_size,omitempty" yaml:"file_size"`
	UploadedAt   time.Time `json:"upload_date" yaml:"upload_date"`
}

// DisplayName returns the item name or a placeholder for unnamed uploads.
func (i Item) DisplayName() string {
	if strings.TrimSpace(i.Name) == "" {
		return "Unnamed Item"
	}
	return i.Name
}
