package core

import (
	"context"
	"fmt"

	"closetfit/pkg/domain"
)

// NewSlotMembershipRule returns the commit rule that keeps every item in the
// slot its category routes to and in no more than one slot.
func NewSlotMembershipRule() domain.Rule {
	return slotMembershipRule{}
}

type slotMembershipRule struct{}

func (slotMembershipRule) Name() string { return "slot_membership" }

func (r slotMembershipRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	outfit := view.Outfit()
	res := domain.Result{}
	block := func(slot domain.SlotKey, id, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  msg,
			Slot:     slot,
			ItemID:   id,
		})
	}

	seen := make(map[string]domain.SlotKey)
	check := func(slot domain.SlotKey, it *domain.Item) {
		if it == nil {
			block(slot, "", fmt.Sprintf("empty entry in %s slot", slot))
			return
		}
		if routed, ok := domain.SlotFor(it.Category); !ok || routed != slot {
			block(slot, it.ID, fmt.Sprintf("item %s (%s) does not belong in %s slot", it.ID, it.Category, slot))
		}
		if prev, dup := seen[it.ID]; dup {
			block(slot, it.ID, fmt.Sprintf("item %s already placed in %s slot", it.ID, prev))
			return
		}
		seen[it.ID] = slot
	}

	for _, slot := range []domain.SlotKey{domain.SlotTop, domain.SlotBottom, domain.SlotShoes} {
		if it := outfit.Fixed(slot); it != nil {
			check(slot, it)
		}
	}
	for _, it := range outfit.Flexible {
		check(domain.SlotFlexible, it)
	}
	return res, nil
}
