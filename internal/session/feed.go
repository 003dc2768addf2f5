package session

import (
	"sync"
	"time"

	"closetfit/internal/core"
)

// DefaultFeedLimit caps the undrained notices kept per session.
const DefaultFeedLimit = 50

// Notice is one toast waiting for the client.
type Notice struct {
	Message string           `json:"message"`
	Level   core.NoticeLevel `json:"level"`
	At      time.Time        `json:"at"`
}

// Feed queues notices until the client drains them. The oldest notice is
// dropped once the limit is reached.
type Feed struct {
	mu    sync.Mutex
	items []Notice
	limit int
	clock core.Clock
}

// NewFeed returns an empty feed. A non-positive limit uses DefaultFeedLimit.
func NewFeed(limit int, clock core.Clock) *Feed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if clock == nil {
		clock = core.ClockFunc(func() time.Time { return time.Now().UTC() })
	}
	return &Feed{limit: limit, clock: clock}
}

// Notify implements core.Notifier.
func (f *Feed) Notify(message string, level core.NoticeLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) >= f.limit {
		f.items = append(f.items[:0], f.items[1:]...)
	}
	f.items = append(f.items, Notice{Message: message, Level: level, At: f.clock.Now()})
}

// Drain returns and clears the queued notices, oldest first.
func (f *Feed) Drain() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

// badgeBoard is the grid badge display's copy of the in-use set. The loop
// writes it after every commit; HTTP readers load it without a round trip.
type badgeBoard struct {
	mu  sync.RWMutex
	set core.InUseSet
}

func (b *badgeBoard) InUseChanged(set core.InUseSet) {
	b.mu.Lock()
	b.set = set
	b.mu.Unlock()
}

func (b *badgeBoard) snapshot() core.InUseSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append(core.InUseSet{}, b.set...)
}
