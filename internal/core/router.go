package core

import "closetfit/pkg/domain"

// route resolves the slot for an item or returns a RoutingError.
func route(it *domain.Item) (domain.SlotKey, error) {
	if it == nil {
		return "", domain.RoutingError{}
	}
	slot, ok := domain.SlotFor(it.Category)
	if !ok {
		return "", domain.RoutingError{ItemID: it.ID, Category: it.Category}
	}
	return slot, nil
}

// assignItem routes it into the pending outfit. Fixed slots are overwritten;
// the flexible slot rejects duplicates and appends only below limit.
func assignItem(tx *Transaction, it *domain.Item, limit int) (domain.SlotKey, error) {
	slot, err := route(it)
	if err != nil {
		return "", err
	}
	if slot.Fixed() {
		return slot, tx.SetFixed(slot, it)
	}
	if tx.outfit.FlexibleIndex(it.ID) >= 0 {
		return slot, domain.DuplicateError{ItemID: it.ID}
	}
	if len(tx.outfit.Flexible) >= limit {
		return slot, domain.CapacityError{Limit: limit}
	}
	tx.Append(it)
	return slot, nil
}

// removeSlot empties a fixed slot. Removing an empty slot is a no-op.
func removeSlot(tx *Transaction, slot domain.SlotKey) error {
	return tx.SetFixed(slot, nil)
}
