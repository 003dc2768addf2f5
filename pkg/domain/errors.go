package domain

import (
	"errors"
	"fmt"
)

// RoutingError is returned when an item has no slot for its category.
type RoutingError struct {
	ItemID   string
	Category Category
}

func (e RoutingError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("unsupported category: item %s has no category", e.ItemID)
	}
	return fmt.Sprintf("unsupported category %q for item %s", e.Category, e.ItemID)
}

// CapacityError is returned when the flexible slot is already full.
type CapacityError struct {
	Limit int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("flexible slot full: maximum %d items", e.Limit)
}

// DuplicateError is returned when an item already sits in the flexible slot.
type DuplicateError struct {
	ItemID string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("item %s already in flexible slot", e.ItemID)
}

// IndexError is returned for an out-of-range flexible position.
type IndexError struct {
	Index int
	Len   int
}

func (e IndexError) Error() string {
	return fmt.Sprintf("flexible index %d out of range [0,%d)", e.Index, e.Len)
}

// Fetch operations distinguish the toast a FetchError produces.
const (
	FetchForDrag      = "drag"
	FetchForAdd       = "add"
	FetchForRandomize = "randomize"
)

// FetchError wraps a failed catalog lookup.
type FetchError struct {
	Op     string
	ItemID string
	Err    error
}

func (e FetchError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("fetch catalog: %v", e.Err)
	}
	return fmt.Sprintf("fetch item %s: %v", e.ItemID, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// ExportError wraps a rasterization or artifact storage failure.
type ExportError struct {
	Reason string
	Err    error
}

func (e ExportError) Error() string {
	switch {
	case e.Err == nil:
		return e.Reason
	case e.Reason == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
}

func (e ExportError) Unwrap() error { return e.Err }

// ErrItemNotFound is returned by catalog adapters for unknown ids.
var ErrItemNotFound = errors.New("item not found")

// ErrEmptyOutfit marks an export attempted with nothing composed.
var ErrEmptyOutfit = errors.New("outfit is empty")

// ErrEmptyCatalog marks a randomize over a catalog with no items.
var ErrEmptyCatalog = errors.New("catalog is empty")

// UserMessage converts a composition error into the toast text shown to the user.
func UserMessage(err error) string {
	var (
		routing   RoutingError
		capacity  CapacityError
		duplicate DuplicateError
		index     IndexError
		fetch     FetchError
		export    ExportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &routing):
		if routing.Category == "" {
			return "Item has no category!"
		}
		return "Unknown category: " + string(routing.Category)
	case errors.As(err, &capacity):
		return fmt.Sprintf("Maximum %d items in accessories section!", capacity.Limit)
	case errors.As(err, &duplicate):
		return "Item already in builder!"
	case errors.As(err, &index):
		return "That accessory is no longer in the outfit."
	case errors.As(err, &export):
		if errors.Is(export.Err, ErrEmptyOutfit) {
			return "Add some items to your outfit first!"
		}
		return "Failed to export outfit: " + export.Error()
	case errors.Is(err, ErrEmptyCatalog):
		return "No items available to randomize!"
	case errors.As(err, &fetch):
		switch fetch.Op {
		case FetchForAdd:
			return "Failed to add item"
		case FetchForRandomize:
			return "Failed to randomize outfit: " + fetch.Err.Error()
		}
		return "Failed to load item: " + fetch.Err.Error()
	default:
		return err.Error()
	}
}
