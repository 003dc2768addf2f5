package core

import (
	"sort"

	"closetfit/pkg/domain"
)

// pools partitions a candidate pool by slot family.
type pools struct {
	tops, bottoms, shoes, hats, accessories []*domain.Item
}

func partition(pool []domain.Item) pools {
	var p pools
	for i := range pool {
		it := &pool[i]
		switch it.Category {
		case domain.CategoryTop, domain.CategoryOuterwear:
			p.tops = append(p.tops, it)
		case domain.CategoryBottom:
			p.bottoms = append(p.bottoms, it)
		case domain.CategoryShoes:
			p.shoes = append(p.shoes, it)
		case domain.CategoryHat:
			p.hats = append(p.hats, it)
		case domain.CategoryAccessory, domain.CategoryOther:
			p.accessories = append(p.accessories, it)
		}
	}
	return p
}

func pick(rng domain.RNG, items []*domain.Item) *domain.Item {
	if len(items) == 0 {
		return nil
	}
	return items[rng.Intn(len(items))]
}

// shuffle permutes items in place.
func shuffle(rng domain.RNG, mode ShuffleMode, items []*domain.Item) {
	if mode == ShuffleLegacy {
		sort.SliceStable(items, func(_, _ int) bool { return rng.Intn(2) == 0 })
		return
	}
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// randomOutfit builds a fresh outfit from pool: one uniform pick per fixed
// slot, at most one hat leading the flexible list, then shuffled accessories
// up to RandomFlexibleCapacity. The pool is copied, never reordered.
func randomOutfit(rng domain.RNG, mode ShuffleMode, pool []domain.Item) domain.Outfit {
	p := partition(append([]domain.Item(nil), pool...))

	var out domain.Outfit
	out.Top = pick(rng, p.tops)
	out.Bottom = pick(rng, p.bottoms)
	out.Shoes = pick(rng, p.shoes)

	used := make(map[string]struct{})
	if hat := pick(rng, p.hats); hat != nil {
		out.Flexible = append(out.Flexible, hat)
		used[hat.ID] = struct{}{}
	}

	candidates := append([]*domain.Item(nil), p.accessories...)
	shuffle(rng, mode, candidates)
	for _, it := range candidates {
		if len(out.Flexible) >= domain.RandomFlexibleCapacity {
			break
		}
		// Skips the chosen hat and repeated ids within the snapshot.
		if _, dup := used[it.ID]; dup {
			continue
		}
		out.Flexible = append(out.Flexible, it)
		used[it.ID] = struct{}{}
	}
	return out
}
