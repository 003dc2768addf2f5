// Package session runs one event loop per open composition surface and keeps
// the registry of live sessions.
//
// A core.Composer is not safe for concurrent use. Every call into it is posted
// to the owning session's loop goroutine. Catalog fetches run off the loop and
// post their completion back, so a slow fetch never blocks pointer input.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"closetfit/internal/core"
	"closetfit/pkg/domain"
)

// ErrUnknownSource rejects a pointer-down with an unrecognized drag source.
var ErrUnknownSource = errors.New("unknown drag source")

// PointerDown starts a drag. ItemID is used for grid grabs and Index for
// flexible grabs.
type PointerDown struct {
	Source   core.DragSource `json:"source"`
	ItemID   string          `json:"item_id,omitempty"`
	Index    int             `json:"index,omitempty"`
	Position core.Point      `json:"position"`
}

// Session owns one composer and the goroutine that serializes access to it.
type Session struct {
	id      string
	comp    *core.Composer
	catalog core.Catalog
	feed    *Feed
	badges  *badgeBoard
	logger  *slog.Logger
	clock   core.Clock

	events  chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	// Loop-owned: grid fetches whose completion has not been applied yet and
	// the Settle callers waiting for that count to reach zero.
	inflight int
	settled  []chan struct{}

	lastSeen atomic.Int64
	once     sync.Once
}

func newSession(id string, cat core.Catalog, feed *Feed, badges *badgeBoard, comp *core.Composer, logger *slog.Logger, clock core.Clock) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      id,
		comp:    comp,
		catalog: cat,
		feed:    feed,
		badges:  badges,
		logger:  logger,
		clock:   clock,
		events:  make(chan func(), 16),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	s.touch()
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.ctx.Done():
			s.comp.Close()
			s.logger.Debug("session loop stopped")
			return
		}
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) touch() { s.lastSeen.Store(s.clock.Now().UnixNano()) }

func (s *Session) idleSince() int64 { return s.lastSeen.Load() }

// post queues fn on the loop. It fails once the session stopped.
func (s *Session) post(ctx context.Context, fn func()) error {
	select {
	case <-s.stopped:
		return core.ErrSurfaceClosed
	default:
	}
	select {
	case s.events <- fn:
		return nil
	case <-s.stopped:
		return core.ErrSurfaceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exec runs fn on the loop and waits for its result. A caller whose context
// ends before the loop reaches fn gets ctx.Err() and fn never runs. Once
// queued, the caller always waits so the reported outcome matches what the
// loop did.
func (s *Session) exec(ctx context.Context, fn func(c *core.Composer) error) error {
	s.touch()
	errc := make(chan error, 1)
	if err := s.post(ctx, func() {
		if err := ctx.Err(); err != nil {
			errc <- err
			return
		}
		errc <- fn(s.comp)
	}); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-s.stopped:
		return core.ErrSurfaceClosed
	}
}

// View snapshots the surface.
func (s *Session) View(ctx context.Context) (core.View, error) {
	var v core.View
	err := s.exec(ctx, func(c *core.Composer) error {
		v = c.View()
		return nil
	})
	return v, err
}

// PointerDown starts a grid or flexible drag. A grid grab returns once the
// grab is registered; the item fetch completes on the loop later.
func (s *Session) PointerDown(ctx context.Context, in PointerDown) error {
	switch in.Source {
	case core.SourceGrid:
		return s.exec(ctx, func(c *core.Composer) error {
			t, err := c.GrabGrid(ctx, in.ItemID, in.Position)
			if err != nil {
				return err
			}
			s.inflight++
			go s.fetchGrab(t)
			return nil
		})
	case core.SourceFlexible:
		return s.exec(ctx, func(c *core.Composer) error {
			return c.GrabFlexible(ctx, in.Index, in.Position)
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, in.Source)
	}
}

// fetchGrab loads the grabbed item and posts the completion back to the loop.
func (s *Session) fetchGrab(t core.GrabTicket) {
	it, fetchErr := s.catalog.FetchItem(s.ctx, t.ItemID)
	err := s.post(s.ctx, func() {
		_ = s.comp.CompleteGrab(s.ctx, t, it, fetchErr)
		s.fetchDone()
	})
	if err != nil {
		s.logger.Debug("grab completion dropped", "item_id", t.ItemID, "reason", err)
	}
}

// PointerMove updates the preview and hover target.
func (s *Session) PointerMove(ctx context.Context, pos core.Point, layout core.Layout) error {
	return s.exec(ctx, func(c *core.Composer) error {
		c.MovePointer(pos, layout)
		return nil
	})
}

// PointerUp releases the drag and commits its drop.
func (s *Session) PointerUp(ctx context.Context, pos core.Point, layout core.Layout) (core.Drop, error) {
	var drop core.Drop
	err := s.exec(ctx, func(c *core.Composer) error {
		var err error
		drop, err = c.Release(ctx, pos, layout)
		return err
	})
	return drop, err
}

// Add fetches an item off the loop and assigns it (tap-to-add).
func (s *Session) Add(ctx context.Context, id string) error {
	it, fetchErr := s.catalog.FetchItem(ctx, id)
	return s.exec(ctx, func(c *core.Composer) error {
		return c.CompleteAdd(ctx, id, it, fetchErr)
	})
}

// Randomize fetches a catalog snapshot off the loop and randomizes from it.
func (s *Session) Randomize(ctx context.Context) error {
	pool, fetchErr := s.catalog.FetchAllItems(ctx, core.Filter{})
	return s.exec(ctx, func(c *core.Composer) error {
		return c.CompleteRandomize(ctx, pool, fetchErr)
	})
}

// Remove empties a fixed slot.
func (s *Session) Remove(ctx context.Context, slot domain.SlotKey) error {
	return s.exec(ctx, func(c *core.Composer) error { return c.Remove(ctx, slot) })
}

// RemoveFlexible deletes the flexible entry at index.
func (s *Session) RemoveFlexible(ctx context.Context, index int) error {
	return s.exec(ctx, func(c *core.Composer) error { return c.RemoveFlexible(ctx, index) })
}

// Clear resets every slot.
func (s *Session) Clear(ctx context.Context) error {
	return s.exec(ctx, func(c *core.Composer) error { return c.Clear(ctx) })
}

// Export renders and stores the outfit. The loop is busy for the duration.
func (s *Session) Export(ctx context.Context) (core.ExportResult, error) {
	var res core.ExportResult
	err := s.exec(ctx, func(c *core.Composer) error {
		var err error
		res, err = c.Export(ctx)
		return err
	})
	return res, err
}

// InUse returns the badge display's copy of the in-use set.
func (s *Session) InUse() core.InUseSet { return s.badges.snapshot() }

// Notifications drains the toast feed.
func (s *Session) Notifications() []Notice {
	s.touch()
	return s.feed.Drain()
}

// fetchDone runs on the loop after a grab completion was applied.
func (s *Session) fetchDone() {
	s.inflight--
	if s.inflight > 0 {
		return
	}
	for _, ch := range s.settled {
		close(ch)
	}
	s.settled = nil
}

// Settle waits until every outstanding fetch has been applied on the loop.
func (s *Session) Settle(ctx context.Context) error {
	done := make(chan struct{})
	err := s.exec(ctx, func(*core.Composer) error {
		if s.inflight == 0 {
			close(done)
			return nil
		}
		s.settled = append(s.settled, done)
		return nil
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return core.ErrSurfaceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. Pending fetch completions are discarded and later
// calls fail with core.ErrSurfaceClosed.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// Done is closed once the loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.stopped }
