package domain

// SlotKey names a composition position.
type SlotKey string

// Slot keys. The three fixed slots hold at most one item; the flexible slot is
// an ordered, capacity-bounded list.
const (
	SlotTop      SlotKey = "top"
	SlotBottom   SlotKey = "bottom"
	SlotShoes    SlotKey = "shoes"
	SlotFlexible SlotKey = "flexible"
)

// Fixed reports whether k names one of the single-item slots.
func (k SlotKey) Fixed() bool {
	return k == SlotTop || k == SlotBottom || k == SlotShoes
}

const (
	// FlexibleCapacity bounds the flexible slot for manual assignment.
	FlexibleCapacity = 5
	// RandomFlexibleCapacity bounds the flexible slot when the outfit is randomized.
	RandomFlexibleCapacity = 4
)

// SlotFor returns the slot an item of category c routes to.
func SlotFor(c Category) (SlotKey, bool) {
	switch c {
	case CategoryTop, CategoryOuterwear:
		return SlotTop, true
	case CategoryBottom:
		return SlotBottom, true
	case CategoryShoes:
		return SlotShoes, true
	case CategoryHat, CategoryAccessory, CategoryOther:
		return SlotFlexible, true
	default:
		return "", false
	}
}

// Outfit is the composed assignment of items to slots.
type Outfit struct {
	Top      *Item   `json:"top"`
	Bottom   *Item   `json:"bottom"`
	Shoes    *Item   `json:"shoes"`
	Flexible []*Item `json:"flexible"`
}

// Clone copies the slot structure. Items are shared by reference.
func (o Outfit) Clone() Outfit {
	cp := o
	cp.Flexible = append([]*Item(nil), o.Flexible...)
	return cp
}

// Empty reports whether no slot holds an item.
func (o Outfit) Empty() bool {
	return o.Top == nil && o.Bottom == nil && o.Shoes == nil && len(o.Flexible) == 0
}

// Fixed returns the occupant of a fixed slot.
func (o Outfit) Fixed(k SlotKey) *Item {
	switch k {
	case SlotTop:
		return o.Top
	case SlotBottom:
		return o.Bottom
	case SlotShoes:
		return o.Shoes
	default:
		return nil
	}
}

// SetFixed replaces the occupant of a fixed slot; nil empties it.
func (o *Outfit) SetFixed(k SlotKey, it *Item) {
	switch k {
	case SlotTop:
		o.Top = it
	case SlotBottom:
		o.Bottom = it
	case SlotShoes:
		o.Shoes = it
	}
}

// FlexibleIndex returns the position of id in the flexible slot or -1.
func (o Outfit) FlexibleIndex(id string) int {
	for i, it := range o.Flexible {
		if it != nil && it.ID == id {
			return i
		}
	}
	return -1
}

// Items lists the composed items in display order: top, bottom, shoes, then flexible.
func (o Outfit) Items() []*Item {
	out := make([]*Item, 0, 3+len(o.Flexible))
	for _, it := range []*Item{o.Top, o.Bottom, o.Shoes} {
		if it != nil {
			out = append(out, it)
		}
	}
	for _, it := range o.Flexible {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}

// ItemIDs returns the union of ids across every slot.
func (o Outfit) ItemIDs() map[string]struct{} {
	ids := make(map[string]struct{}, 3+len(o.Flexible))
	for _, it := range o.Items() {
		ids[it.ID] = struct{}{}
	}
	return ids
}
