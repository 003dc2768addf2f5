package core

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"closetfit/pkg/domain"
)

func item(id string, c domain.Category) domain.Item {
	return domain.Item{ID: id, Name: "item " + id, Category: c, ProcessedURL: "/processed/" + id + ".png"}
}

func itemPtr(id string, c domain.Category) *domain.Item {
	it := item(id, c)
	return &it
}

type notice struct {
	msg   string
	level NoticeLevel
}

type captureNotifier struct {
	notices []notice
}

func (n *captureNotifier) Notify(msg string, level NoticeLevel) {
	n.notices = append(n.notices, notice{msg: msg, level: level})
}

func (n *captureNotifier) errors() []string {
	var out []string
	for _, x := range n.notices {
		if x.level == NoticeError {
			out = append(out, x.msg)
		}
	}
	return out
}

func (n *captureNotifier) reset() { n.notices = nil }

type seededRNG struct{ r *rand.Rand }

func newSeededRNG(seed uint64) seededRNG {
	return seededRNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s seededRNG) Intn(n int) int { return s.r.IntN(n) }

// firstRNG always picks index 0 and never swaps during a uniform shuffle.
type firstRNG struct{}

func (firstRNG) Intn(int) int { return 0 }

type fakeCatalog struct {
	items map[string]domain.Item
	err   error
	calls int
}

func newFakeCatalog(items ...domain.Item) *fakeCatalog {
	c := &fakeCatalog{items: make(map[string]domain.Item)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *fakeCatalog) FetchItem(_ context.Context, id string) (domain.Item, error) {
	c.calls++
	if c.err != nil {
		return domain.Item{}, c.err
	}
	it, ok := c.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return it, nil
}

func (c *fakeCatalog) FetchAllItems(context.Context, Filter) ([]domain.Item, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type captureBadges struct {
	updates []InUseSet
}

func (b *captureBadges) InUseChanged(set InUseSet) {
	b.updates = append(b.updates, set)
}

var errBoom = errors.New("boom")

func newTestComposer(t *testing.T, opts ...Option) (*Composer, *captureNotifier) {
	t.Helper()
	n := &captureNotifier{}
	all := append([]Option{WithNotifier(n), WithRNG(newSeededRNG(1))}, opts...)
	return NewComposer(all...), n
}

func flexibleIDs(o domain.Outfit) []string {
	ids := make([]string, 0, len(o.Flexible))
	for _, it := range o.Flexible {
		ids = append(ids, it.ID)
	}
	return ids
}

// unionIDs rebuilds the in-use set straight from the slot fields.
func unionIDs(o domain.Outfit) InUseSet {
	seen := map[string]bool{}
	var out InUseSet
	add := func(it *domain.Item) {
		if it != nil && !seen[it.ID] {
			seen[it.ID] = true
			out = append(out, it.ID)
		}
	}
	add(o.Top)
	add(o.Bottom)
	add(o.Shoes)
	for _, it := range o.Flexible {
		add(it)
	}
	sort.Strings(out)
	if out == nil {
		out = InUseSet{}
	}
	return out
}
