package core

import (
	"context"
	"errors"
	"time"

	"closetfit/pkg/domain"
)

// Composer is one open composition surface: the outfit, its drag controller
// and the derived in-use set. It is not safe for concurrent use; callers
// serialize access on a single event loop.
type Composer struct {
	opts        composerOptions
	store       *outfitStore
	drag        *DragController
	inUse       InUseSet
	affordances bool
	closed      bool
}

// NewComposer opens an empty composition surface.
func NewComposer(opts ...Option) *Composer {
	cfg := defaultComposerOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Composer{
		opts:        cfg,
		store:       newOutfitStore(cfg.rules),
		drag:        NewDragController(),
		inUse:       InUseSet{},
		affordances: true,
	}
}

// View is a consistent snapshot of the surface for presentation.
type View struct {
	Outfit       domain.Outfit `json:"outfit"`
	InUse        InUseSet      `json:"in_use"`
	Drag         DragState     `json:"drag"`
	Grid         GridShape     `json:"grid"`
	ShowControls bool          `json:"show_controls"`
	Closed       bool          `json:"closed"`
}

// Outfit returns a copy of the committed outfit.
func (c *Composer) Outfit() domain.Outfit { return c.store.snapshot() }

// InUse returns the ids currently composed.
func (c *Composer) InUse() InUseSet { return append(InUseSet(nil), c.inUse...) }

// DragState returns the drag controller snapshot.
func (c *Composer) DragState() DragState { return c.drag.State() }

// View snapshots everything a presenter needs. Highlights are hidden while
// affordances are suppressed.
func (c *Composer) View() View {
	o := c.store.snapshot()
	ds := c.drag.State()
	if !c.affordances {
		ds.OverSurface = false
		ds.Hover = -1
	}
	return View{
		Outfit:       o,
		InUse:        c.InUse(),
		Drag:         ds,
		Grid:         FlexibleGrid(len(o.Flexible)),
		ShowControls: c.affordances,
		Closed:       c.closed,
	}
}

// Close discards the surface. Later calls fail with ErrSurfaceClosed.
func (c *Composer) Close() {
	c.closed = true
	c.drag.Cancel()
}

// Closed reports whether Close was called.
func (c *Composer) Closed() bool { return c.closed }

// silent errors are normal flow and never reach the notifier.
func silent(err error) bool {
	return errors.Is(err, ErrStaleGrab) || errors.Is(err, ErrDragActive) || errors.Is(err, ErrSurfaceClosed)
}

// do runs one operation with tracing and metrics. A failure produces exactly
// one notification unless it is silent.
func (c *Composer) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := c.opts.tracer.Start(ctx, op)
	var err error
	if c.closed {
		err = ErrSurfaceClosed
	} else {
		err = fn(ctx)
	}
	span.End(err)
	c.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err == nil {
		c.opts.logger.Debug("composer operation", "operation", op, "in_use", len(c.inUse))
		return nil
	}
	if silent(err) {
		c.opts.logger.Debug("composer operation ignored", "operation", op, "reason", err)
		return err
	}
	c.opts.logger.Warn("composer operation failed", "operation", op, "error", err)
	c.opts.notifier.Notify(domain.UserMessage(err), NoticeError)
	return err
}

// mutate commits fn through the rules engine and refreshes the in-use set
// before returning.
func (c *Composer) mutate(ctx context.Context, fn func(tx *Transaction) error) error {
	res, changed, err := c.store.run(ctx, fn)
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			c.opts.logger.Info("outfit rule", "rule", v.Rule, "severity", v.Severity, "message", v.Message)
		}
	}
	if err != nil {
		return err
	}
	if changed {
		c.sync()
	}
	return nil
}

func (c *Composer) sync() {
	c.inUse = inUse(c.store.snapshot())
	for _, b := range c.opts.badges {
		b.InUseChanged(c.InUse())
	}
}

func (c *Composer) success(msg string) {
	c.opts.notifier.Notify(msg, NoticeSuccess)
}

// Assign routes an item into its slot.
func (c *Composer) Assign(ctx context.Context, it *domain.Item) error {
	return c.do(ctx, "assign", func(ctx context.Context) error {
		return c.assign(ctx, it)
	})
}

func (c *Composer) assign(ctx context.Context, it *domain.Item) error {
	return c.mutate(ctx, func(tx *Transaction) error {
		_, err := assignItem(tx, it, domain.FlexibleCapacity)
		return err
	})
}

// Remove empties a fixed slot. Removing an empty slot succeeds.
func (c *Composer) Remove(ctx context.Context, slot domain.SlotKey) error {
	return c.do(ctx, "remove", func(ctx context.Context) error {
		return c.mutate(ctx, func(tx *Transaction) error {
			return removeSlot(tx, slot)
		})
	})
}

// RemoveFlexible deletes the flexible entry at index.
func (c *Composer) RemoveFlexible(ctx context.Context, index int) error {
	return c.do(ctx, "remove_flexible", func(ctx context.Context) error {
		return c.mutate(ctx, func(tx *Transaction) error {
			return tx.RemoveAt(index)
		})
	})
}

// Swap exchanges flexible entries i and j. A negative j or j == i is a no-op.
func (c *Composer) Swap(ctx context.Context, i, j int) error {
	return c.do(ctx, "swap", func(ctx context.Context) error {
		return c.swap(ctx, i, j)
	})
}

func (c *Composer) swap(ctx context.Context, i, j int) error {
	if j < 0 || i == j {
		return nil
	}
	return c.mutate(ctx, func(tx *Transaction) error {
		return tx.Swap(i, j)
	})
}

// Clear resets every slot.
func (c *Composer) Clear(ctx context.Context) error {
	return c.do(ctx, "clear", func(ctx context.Context) error {
		return c.mutate(ctx, func(tx *Transaction) error {
			if tx.outfit.Empty() {
				return nil
			}
			tx.Replace(domain.Outfit{})
			return nil
		})
	})
}

// Randomize replaces the outfit with a random one drawn from pool.
func (c *Composer) Randomize(ctx context.Context, pool []domain.Item) error {
	return c.CompleteRandomize(ctx, pool, nil)
}

// CompleteRandomize applies the result of a catalog snapshot fetch.
func (c *Composer) CompleteRandomize(ctx context.Context, pool []domain.Item, fetchErr error) error {
	err := c.do(ctx, "randomize", func(ctx context.Context) error {
		if fetchErr != nil {
			return domain.FetchError{Op: domain.FetchForRandomize, Err: fetchErr}
		}
		if len(pool) == 0 {
			return domain.ErrEmptyCatalog
		}
		next := randomOutfit(c.opts.rng, c.opts.shuffle, pool)
		return c.mutate(ctx, func(tx *Transaction) error {
			tx.Replace(next)
			return nil
		})
	})
	if err == nil {
		c.success("Outfit randomized!")
	}
	return err
}

// RandomizeFrom fetches a fresh catalog snapshot and randomizes from it. It
// blocks for the fetch; event loops should fetch off-loop and call
// CompleteRandomize instead.
func (c *Composer) RandomizeFrom(ctx context.Context, cat Catalog) error {
	pool, err := cat.FetchAllItems(ctx, Filter{})
	return c.CompleteRandomize(ctx, pool, err)
}

// CompleteAdd applies a tap-to-add whose item fetch has finished.
func (c *Composer) CompleteAdd(ctx context.Context, id string, it domain.Item, fetchErr error) error {
	err := c.do(ctx, "add", func(ctx context.Context) error {
		if fetchErr != nil {
			return domain.FetchError{Op: domain.FetchForAdd, ItemID: id, Err: fetchErr}
		}
		return c.assign(ctx, &it)
	})
	if err == nil {
		c.success("Added to outfit!")
	}
	return err
}

// AddByID fetches an item and assigns it.
func (c *Composer) AddByID(ctx context.Context, cat Catalog, id string) error {
	it, err := cat.FetchItem(ctx, id)
	return c.CompleteAdd(ctx, id, it, err)
}

// GrabGrid starts a grab on a catalog card. The controller stays idle until
// CompleteGrab delivers the fetched item for the returned ticket.
func (c *Composer) GrabGrid(ctx context.Context, itemID string, pos Point) (GrabTicket, error) {
	var t GrabTicket
	err := c.do(ctx, "grab_grid", func(context.Context) error {
		var err error
		t, err = c.drag.RequestGrid(itemID, pos)
		return err
	})
	return t, err
}

// CompleteGrab resolves a pending grid grab. Completions for a released or
// superseded grab return ErrStaleGrab without touching any state.
func (c *Composer) CompleteGrab(ctx context.Context, t GrabTicket, it domain.Item, fetchErr error) error {
	return c.do(ctx, "grab_complete", func(context.Context) error {
		if fetchErr != nil {
			if !c.drag.Abandon(t) {
				return ErrStaleGrab
			}
			return domain.FetchError{Op: domain.FetchForDrag, ItemID: t.ItemID, Err: fetchErr}
		}
		return c.drag.Resolve(t, &it)
	})
}

// GrabGridFrom is GrabGrid followed by a blocking fetch and CompleteGrab.
func (c *Composer) GrabGridFrom(ctx context.Context, cat Catalog, itemID string, pos Point) error {
	t, err := c.GrabGrid(ctx, itemID, pos)
	if err != nil {
		return err
	}
	it, fetchErr := cat.FetchItem(ctx, itemID)
	return c.CompleteGrab(ctx, t, it, fetchErr)
}

// GrabFlexible starts a reorder drag on the flexible entry at index.
func (c *Composer) GrabFlexible(ctx context.Context, index int, pos Point) error {
	return c.do(ctx, "grab_flexible", func(context.Context) error {
		o := c.store.snapshot()
		if index < 0 || index >= len(o.Flexible) {
			return domain.IndexError{Index: index, Len: len(o.Flexible)}
		}
		return c.drag.GrabFlexible(index, o.Flexible[index], pos)
	})
}

// MovePointer updates the preview and hover target.
func (c *Composer) MovePointer(pos Point, layout Layout) {
	if c.closed {
		return
	}
	c.drag.Move(pos, c.entryTargets(layout))
}

// entryTargets drops host rectangles that have no flexible entry behind them.
func (c *Composer) entryTargets(layout Layout) Layout {
	if n := len(c.store.outfit.Flexible); len(layout.Flexible) > n {
		layout.Flexible = layout.Flexible[:n]
	}
	return layout
}

// Release ends the drag and commits its drop. A drop outside any target is a
// silent cancel.
func (c *Composer) Release(ctx context.Context, pos Point, layout Layout) (Drop, error) {
	var drop Drop
	err := c.do(ctx, "release", func(ctx context.Context) error {
		drop = c.drag.Release(pos, c.entryTargets(layout))
		switch drop.Kind {
		case DropAssign:
			return c.assign(ctx, drop.Item)
		case DropSwap:
			o := c.store.snapshot()
			if drop.From >= len(o.Flexible) || drop.To >= len(o.Flexible) || drop.Item == nil || o.Flexible[drop.From].ID != drop.Item.ID {
				drop.Kind = DropNone
				return nil
			}
			return c.swap(ctx, drop.From, drop.To)
		}
		return nil
	})
	return drop, err
}

// ExportResult is a rendered composition.
type ExportResult struct {
	FileName string            `json:"file_name"`
	Location string            `json:"location,omitempty"`
	Image    []byte            `json:"-"`
	Surface  SurfaceDescriptor `json:"surface"`
}

// ExportFileName names an export taken at t.
func ExportFileName(t time.Time) string {
	return "outfit-" + t.UTC().Format("2006-01-02T15-04-05") + ".png"
}

// Export renders the outfit. Remove buttons and drag highlights are hidden
// for the duration of the call and restored before any notification.
func (c *Composer) Export(ctx context.Context) (ExportResult, error) {
	var res ExportResult
	err := c.do(ctx, "export", func(ctx context.Context) error {
		o := c.store.snapshot()
		if o.Empty() {
			return domain.ExportError{Err: domain.ErrEmptyOutfit}
		}
		if c.opts.raster == nil {
			return domain.ExportError{Reason: "no rasterizer configured"}
		}

		c.affordances = false
		defer func() { c.affordances = true }()

		surface := describe(o, c.opts.scale, c.affordances)
		img, err := c.opts.raster.RenderToImage(ctx, surface)
		if err != nil {
			return domain.ExportError{Err: err}
		}
		res = ExportResult{FileName: ExportFileName(c.opts.clock.Now()), Image: img, Surface: surface}
		if c.opts.artifacts != nil {
			loc, err := c.opts.artifacts.SaveExport(ctx, res.FileName, img)
			if err != nil {
				return domain.ExportError{Reason: "store export", Err: err}
			}
			res.Location = loc
		}
		return nil
	})
	if err == nil {
		c.success("Outfit exported successfully!")
	}
	return res, err
}
