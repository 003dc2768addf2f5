package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"closetfit/pkg/domain"
)

func TestInUseTracksEveryCommittedMutation(t *testing.T) {
	ctx := context.Background()
	badges := &captureBadges{}
	c, _ := newTestComposer(t, WithBadgeConsumer(badges), WithRNG(newSeededRNG(9)))

	check := func(step string) {
		t.Helper()
		want := unionIDs(c.Outfit())
		if diff := cmp.Diff(want, c.InUse()); diff != "" {
			t.Fatalf("%s: in-use (-want +got):\n%s", step, diff)
		}
		if n := len(badges.updates); n > 0 {
			if diff := cmp.Diff(want, badges.updates[n-1]); diff != "" {
				t.Fatalf("%s: badge consumer (-want +got):\n%s", step, diff)
			}
		}
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"assign top", func() error { return c.Assign(ctx, itemPtr("t", domain.CategoryTop)) }},
		{"assign shoes", func() error { return c.Assign(ctx, itemPtr("s", domain.CategoryShoes)) }},
		{"assign hat", func() error { return c.Assign(ctx, itemPtr("h", domain.CategoryHat)) }},
		{"assign acc", func() error { return c.Assign(ctx, itemPtr("a", domain.CategoryAccessory)) }},
		{"swap", func() error { return c.Swap(ctx, 0, 1) }},
		{"replace top", func() error { return c.Assign(ctx, itemPtr("o", domain.CategoryOuterwear)) }},
		{"remove shoes", func() error { return c.Remove(ctx, domain.SlotShoes) }},
		{"remove flexible", func() error { return c.RemoveFlexible(ctx, 0) }},
		{"randomize", func() error { return c.Randomize(ctx, mixedPool()) }},
		{"clear", func() error { return c.Clear(ctx) }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		check(s.name)
	}
	if len(badges.updates) != len(steps) {
		t.Fatalf("expected %d badge updates, got %d", len(steps), len(badges.updates))
	}
}

func TestRejectedMutationDoesNotResync(t *testing.T) {
	ctx := context.Background()
	badges := &captureBadges{}
	c, _ := newTestComposer(t, WithBadgeConsumer(badges))
	for i := 0; i < domain.FlexibleCapacity; i++ {
		if err := c.Assign(ctx, itemPtr(fmt.Sprintf("a%d", i), domain.CategoryAccessory)); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	before := len(badges.updates)
	_ = c.Assign(ctx, itemPtr("overflow", domain.CategoryAccessory))
	_ = c.Remove(ctx, domain.SlotTop)
	if len(badges.updates) != before {
		t.Fatalf("rejected or no-op mutation published badges")
	}
	if c.InUse().Contains("overflow") {
		t.Fatalf("rejected item marked in use")
	}
}

func TestFlexibleGrid(t *testing.T) {
	cases := map[int]GridShape{
		0: {},
		1: {Cols: 1, Rows: 1},
		2: {Cols: 2, Rows: 1},
		3: {Cols: 2, Rows: 2},
		4: {Cols: 2, Rows: 2},
		5: {Cols: 3, Rows: 2},
	}
	for n, want := range cases {
		if got := FlexibleGrid(n); got != want {
			t.Fatalf("FlexibleGrid(%d) = %+v, want %+v", n, got, want)
		}
	}
}

func TestRulesBlockCrossSlotAliasing(t *testing.T) {
	ctx := context.Background()
	c, n := newTestComposer(t)
	if err := c.Assign(ctx, itemPtr("x", domain.CategoryTop)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	err := c.Assign(ctx, itemPtr("x", domain.CategoryHat))
	if _, ok := err.(RuleViolationError); !ok {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if len(c.Outfit().Flexible) != 0 {
		t.Fatalf("aliased item committed")
	}
	if len(n.errors()) != 1 {
		t.Fatalf("expected one notification, got %v", n.errors())
	}
}
