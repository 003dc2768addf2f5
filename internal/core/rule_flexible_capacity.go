package core

import (
	"context"
	"fmt"

	"closetfit/pkg/domain"
)

// NewFlexibleCapacityRule returns the commit rule bounding the flexible slot.
func NewFlexibleCapacityRule(limit int) domain.Rule {
	return flexibleCapacityRule{limit: limit}
}

type flexibleCapacityRule struct {
	limit int
}

func (flexibleCapacityRule) Name() string { return "flexible_capacity" }

func (r flexibleCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	outfit := view.Outfit()
	res := domain.Result{}
	if n := len(outfit.Flexible); n > r.limit {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("flexible slot over capacity: %d/%d items", n, r.limit),
			Slot:     domain.SlotFlexible,
		})
	}
	return res, nil
}
