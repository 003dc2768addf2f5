package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"closetfit/internal/core"
	"closetfit/internal/logging"
)

// Gauge receives the number of open sessions.
type Gauge interface {
	SetOpenSessions(n int)
}

// Registry hands out sessions by id and reaps idle ones.
type Registry struct {
	catalog   core.Catalog
	composer  []core.Option
	idleLimit time.Duration
	feedLimit int
	logger    *slog.Logger
	clock     core.Clock
	gauge     Gauge
	newID     func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Registry.
type Option func(*Registry)

// WithComposerOptions applies opts to every composer the registry opens.
func WithComposerOptions(opts ...core.Option) Option {
	return func(r *Registry) { r.composer = append(r.composer, opts...) }
}

// WithIdleLimit closes sessions untouched for longer than d. Zero disables reaping.
func WithIdleLimit(d time.Duration) Option {
	return func(r *Registry) { r.idleLimit = d }
}

// WithFeedLimit caps each session's undrained notices.
func WithFeedLimit(n int) Option {
	return func(r *Registry) { r.feedLimit = n }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the idle clock.
func WithClock(c core.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithGauge reports the open session count.
func WithGauge(g Gauge) Option {
	return func(r *Registry) { r.gauge = g }
}

// NewRegistry returns an empty registry reading items from cat.
func NewRegistry(cat core.Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog:  cat,
		logger:   logging.New("session"),
		clock:    core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a new session with an empty outfit.
func (r *Registry) Open() *Session {
	id := r.newID()
	logger := r.logger.With(slog.String("session_id", id))
	feed := NewFeed(r.feedLimit, r.clock)
	badges := &badgeBoard{}
	opts := append(append([]core.Option(nil), r.composer...),
		core.WithLogger(logger),
		core.WithNotifier(feed),
		core.WithBadgeConsumer(badges),
	)
	s := newSession(id, r.catalog, feed, badges, core.NewComposer(opts...), logger, r.clock)

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.report(n)
	logger.Info("session opened")
	return s
}

// Get returns the live session with id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// IDs lists the live sessions in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops and forgets the session with id.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	r.report(n)
	r.logger.Info("session closed", "session_id", id)
	return true
}

// Reap closes sessions idle for longer than the idle limit at now and
// returns how many were closed.
func (r *Registry) Reap(now time.Time) int {
	if r.idleLimit <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleLimit).UnixNano()
	var stale []string
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince() < cutoff {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()
	for _, id := range stale {
		r.Close(id)
	}
	if len(stale) > 0 {
		r.logger.Info("reaped idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Run reaps idle sessions every interval until ctx is done, then closes all
// sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return nil
		case <-ticker.C:
			r.Reap(r.clock.Now())
		}
	}
}

// CloseAll stops every session.
func (r *Registry) CloseAll() {
	for _, id := range r.IDs() {
		r.Close(id)
	}
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) report(n int) {
	if r.gauge != nil {
		r.gauge.SetOpenSessions(n)
	}
}
