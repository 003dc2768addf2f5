package core

import (
	"sort"

	"closetfit/pkg/domain"
)

// InUseSet is the sorted list of item ids currently composed.
type InUseSet []string

// Contains reports whether id is in use.
func (s InUseSet) Contains(id string) bool {
	i := sort.SearchStrings(s, id)
	return i < len(s) && s[i] == id
}

// inUse derives the set from the outfit. It is never stored apart from the
// outfit it was computed from.
func inUse(o domain.Outfit) InUseSet {
	ids := o.ItemIDs()
	set := make(InUseSet, 0, len(ids))
	for id := range ids {
		set = append(set, id)
	}
	sort.Strings(set)
	return set
}

// GridShape is the column/row arrangement of the flexible slot.
type GridShape struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// FlexibleGrid returns the arrangement used for n flexible entries.
func FlexibleGrid(n int) GridShape {
	switch {
	case n <= 0:
		return GridShape{}
	case n == 1:
		return GridShape{Cols: 1, Rows: 1}
	case n == 2:
		return GridShape{Cols: 2, Rows: 1}
	case n <= 4:
		return GridShape{Cols: 2, Rows: 2}
	default:
		return GridShape{Cols: 3, Rows: (n + 2) / 3}
	}
}

// SlotImage is one rendered slot entry.
type SlotImage struct {
	Slot     domain.SlotKey `json:"slot"`
	ItemID   string         `json:"item_id"`
	Name     string         `json:"name"`
	ImageURL string         `json:"image_url"`
}

// SurfaceDescriptor describes the visual composition handed to the rasterizer.
type SurfaceDescriptor struct {
	Fixed        []SlotImage `json:"fixed"`
	Flexible     []SlotImage `json:"flexible"`
	Grid         GridShape   `json:"grid"`
	Background   string      `json:"background"`
	Scale        int         `json:"scale"`
	ShowControls bool        `json:"show_controls"`
	Highlights   bool        `json:"highlights"`
}

func slotImage(slot domain.SlotKey, it *domain.Item) SlotImage {
	url := it.ProcessedURL
	if url == "" {
		url = it.OriginalURL
	}
	return SlotImage{Slot: slot, ItemID: it.ID, Name: it.DisplayName(), ImageURL: url}
}

// describe captures the outfit in display order. Empty fixed slots are omitted.
func describe(o domain.Outfit, scale int, affordances bool) SurfaceDescriptor {
	d := SurfaceDescriptor{
		Grid:         FlexibleGrid(len(o.Flexible)),
		Background:   "#ffffff",
		Scale:        scale,
		ShowControls: affordances,
		Highlights:   affordances,
	}
	for _, slot := range []domain.SlotKey{domain.SlotTop, domain.SlotBottom, domain.SlotShoes} {
		if it := o.Fixed(slot); it != nil {
			d.Fixed = append(d.Fixed, slotImage(slot, it))
		}
	}
	for _, it := range o.Flexible {
		d.Flexible = append(d.Flexible, slotImage(domain.SlotFlexible, it))
	}
	return d
}
