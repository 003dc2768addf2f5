package core

import "closetfit/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in outfit invariants.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewFlexibleCapacityRule(domain.FlexibleCapacity))
	engine.Register(NewSlotMembershipRule())
	return engine
}
