package core

import (
	"context"
	"fmt"

	"closetfit/pkg/domain"
)

// outfitStore owns the single mutable outfit of a composition surface.
// Mutations run against a cloned outfit and replace the committed one only
// after the rules engine finds no blocking violation.
type outfitStore struct {
	outfit domain.Outfit
	engine *domain.RulesEngine
}

func newOutfitStore(engine *domain.RulesEngine) *outfitStore {
	return &outfitStore{engine: engine}
}

// Transaction is a pending set of slot mutations.
type Transaction struct {
	outfit  domain.Outfit
	changes []domain.Change
}

type transactionView struct {
	outfit *domain.Outfit
}

func (v transactionView) Outfit() domain.Outfit { return v.outfit.Clone() }

// RuleViolationError is returned when blocking violations prevent a commit.
type RuleViolationError struct {
	Result domain.Result
}

func (e RuleViolationError) Error() string {
	if len(e.Result.Violations) == 0 {
		return "outfit change blocked by rules"
	}
	return fmt.Sprintf("outfit change blocked by rules: %s", e.Result.Violations[0].Message)
}

// run applies fn to a copy of the outfit and commits it when fn succeeds and
// no rule blocks. It reports whether anything changed.
func (s *outfitStore) run(ctx context.Context, fn func(tx *Transaction) error) (domain.Result, bool, error) {
	tx := &Transaction{outfit: s.outfit.Clone()}
	if err := fn(tx); err != nil {
		return domain.Result{}, false, err
	}
	if len(tx.changes) == 0 {
		return domain.Result{}, false, nil
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, transactionView{outfit: &tx.outfit}, tx.changes)
		if err != nil {
			return domain.Result{}, false, err
		}
		result = res
		if res.HasBlocking() {
			return res, false, RuleViolationError{Result: res}
		}
	}

	s.outfit = tx.outfit
	return result, true, nil
}

func (s *outfitStore) snapshot() domain.Outfit {
	return s.outfit.Clone()
}

func (tx *Transaction) record(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Outfit returns the pending outfit.
func (tx *Transaction) Outfit() domain.Outfit { return tx.outfit.Clone() }

// SetFixed overwrites a fixed slot. A nil item empties the slot; emptying an
// empty slot records nothing.
func (tx *Transaction) SetFixed(slot domain.SlotKey, it *domain.Item) error {
	if !slot.Fixed() {
		return fmt.Errorf("slot %q is not a fixed slot", slot)
	}
	before := tx.outfit.Fixed(slot)
	if before == nil && it == nil {
		return nil
	}
	tx.outfit.SetFixed(slot, it)
	action := domain.ActionAssign
	if it == nil {
		action = domain.ActionRemove
	}
	tx.record(domain.Change{Slot: slot, Action: action, Index: -1, Before: before, After: it})
	return nil
}

// Append adds an item to the end of the flexible slot.
func (tx *Transaction) Append(it *domain.Item) {
	tx.outfit.Flexible = append(tx.outfit.Flexible, it)
	tx.record(domain.Change{Slot: domain.SlotFlexible, Action: domain.ActionAssign, Index: len(tx.outfit.Flexible) - 1, After: it})
}

// RemoveAt deletes the flexible entry at index, shifting later entries left.
func (tx *Transaction) RemoveAt(index int) error {
	n := len(tx.outfit.Flexible)
	if index < 0 || index >= n {
		return domain.IndexError{Index: index, Len: n}
	}
	before := tx.outfit.Flexible[index]
	tx.outfit.Flexible = append(tx.outfit.Flexible[:index], tx.outfit.Flexible[index+1:]...)
	tx.record(domain.Change{Slot: domain.SlotFlexible, Action: domain.ActionRemove, Index: index, Before: before})
	return nil
}

// Swap transposes two flexible entries.
func (tx *Transaction) Swap(i, j int) error {
	n := len(tx.outfit.Flexible)
	for _, idx := range []int{i, j} {
		if idx < 0 || idx >= n {
			return domain.IndexError{Index: idx, Len: n}
		}
	}
	if i == j {
		return nil
	}
	f := tx.outfit.Flexible
	f[i], f[j] = f[j], f[i]
	tx.record(domain.Change{Slot: domain.SlotFlexible, Action: domain.ActionSwap, Index: i, Before: f[j], After: f[i]})
	return nil
}

// Replace swaps in a whole outfit as one logical update.
func (tx *Transaction) Replace(next domain.Outfit) {
	tx.outfit = next.Clone()
	tx.record(domain.Change{Slot: "", Action: domain.ActionReset, Index: -1})
}
