package core

import (
	"context"
	"time"

	"closetfit/pkg/domain"
)

// Logger is the structured logging surface used by the composer. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes composer operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around composer operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, nil on success.
type TraceSpan interface {
	End(err error)
}

// Recorders fans each observation out to every recorder in order.
type Recorders []MetricsRecorder

// Observe implements MetricsRecorder.
func (rs Recorders) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range rs {
		if r != nil {
			r.Observe(ctx, operation, success, duration)
		}
	}
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// ShuffleMode selects how the randomizer permutes the accessory pool.
type ShuffleMode string

const (
	// ShuffleUniform is an unbiased Fisher-Yates permutation.
	ShuffleUniform ShuffleMode = "uniform"
	// ShuffleLegacy sorts with a random-sign comparator, reproducing the
	// biased ordering of the browser builder.
	ShuffleLegacy ShuffleMode = "legacy"
)

type composerOptions struct {
	logger    Logger
	clock     Clock
	metrics   MetricsRecorder
	tracer    Tracer
	notifier  Notifier
	rng       domain.RNG
	shuffle   ShuffleMode
	rules     *domain.RulesEngine
	raster    Rasterizer
	artifacts ArtifactStore
	badges    []BadgeConsumer
	scale     int
}

func defaultComposerOptions() composerOptions {
	return composerOptions{
		logger:   noopLogger{},
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		notifier: discardNotifier{},
		rng:      systemRNG{},
		shuffle:  ShuffleUniform,
		rules:    NewDefaultRulesEngine(),
		scale:    2,
	}
}

// Option configures a Composer.
type Option func(*composerOptions)

// WithLogger overrides the composer logger.
func WithLogger(l Logger) Option {
	return func(o *composerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for export naming.
func WithClock(c Clock) Option {
	return func(o *composerOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetricsRecorder wires an operation metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *composerOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer wires a span tracer.
func WithTracer(t Tracer) Option {
	return func(o *composerOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithNotifier wires the user-facing toast channel.
func WithNotifier(n Notifier) Option {
	return func(o *composerOptions) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithRNG overrides the randomizer's source of randomness.
func WithRNG(r domain.RNG) Option {
	return func(o *composerOptions) {
		if r != nil {
			o.rng = r
		}
	}
}

// WithShuffleMode selects the accessory shuffle used by Randomize.
func WithShuffleMode(m ShuffleMode) Option {
	return func(o *composerOptions) {
		if m == ShuffleUniform || m == ShuffleLegacy {
			o.shuffle = m
		}
	}
}

// WithRulesEngine replaces the commit-time invariant rules.
func WithRulesEngine(e *domain.RulesEngine) Option {
	return func(o *composerOptions) {
		o.rules = e
	}
}

// WithRasterizer wires the export collaborator.
func WithRasterizer(r Rasterizer) Option {
	return func(o *composerOptions) {
		o.raster = r
	}
}

// WithArtifactStore persists rendered exports.
func WithArtifactStore(a ArtifactStore) Option {
	return func(o *composerOptions) {
		o.artifacts = a
	}
}

// WithBadgeConsumer subscribes a grid badge display to in-use updates.
func WithBadgeConsumer(b BadgeConsumer) Option {
	return func(o *composerOptions) {
		if b != nil {
			o.badges = append(o.badges, b)
		}
	}
}

// WithExportScale sets the rasterization scale factor passed to the rasterizer.
func WithExportScale(scale int) Option {
	return func(o *composerOptions) {
		if scale > 0 {
			o.scale = scale
		}
	}
}
