package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aryan-mod/suraksha-setu/pkg/logger"
	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
)

// DefaultSlowThreshold is the elapsed time beyond which a query is
// reported as slow. Slowness is an observability signal, not an error.
const DefaultSlowThreshold = time.Second

// Source tags where a result's data came from, so callers and tests can
// assert provenance instead of guessing from the shape of the data.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Result carries the query outcome together with its provenance.
type Result[T any] struct {
	Data    T
	Source  Source
	Elapsed time.Duration
}

// Fallback reports whether the data was substituted from canned fallback.
func (r Result[T]) Fallback() bool {
	return r.Source == SourceFallback
}

// Wrapper instruments remote fetches and substitutes canned data on
// failure instead of propagating the error.
type Wrapper struct {
	slowThreshold time.Duration
	clock         func() time.Time
	log           *zap.Logger
}

// Option customises a Wrapper.
type Option func(*Wrapper)

// WithSlowThreshold overrides the slow-query threshold.
func WithSlowThreshold(threshold time.Duration) Option {
	return func(w *Wrapper) {
		if threshold > 0 {
			w.slowThreshold = threshold
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(w *Wrapper) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// NewWrapper constructs a query fallback wrapper.
func NewWrapper(opts ...Option) *Wrapper {
	wrapper := &Wrapper{
		slowThreshold: DefaultSlowThreshold,
		clock:         time.Now,
		log:           logger.WithModule("query"),
	}
	for _, opt := range opts {
		opt(wrapper)
	}
	return wrapper
}

// Execute runs queryFn under latency instrumentation. On failure with a
// fallback supplied, the canned data is returned as a successful result
// tagged SourceFallback; without one the error propagates unchanged.
func Execute[T any](ctx context.Context, w *Wrapper, name string, queryFn func(ctx context.Context) (T, error), fallback *T) (Result[T], error) {
	start := w.clock()
	data, err := queryFn(ctx)
	elapsed := w.clock().Sub(start)

	if elapsed > w.slowThreshold {
		metrics.SlowQueries.WithLabelValues(name).Inc()
		w.log.Warn("slow query",
			zap.String("query", name),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", w.slowThreshold),
		)
	}

	if err == nil {
		return Result[T]{Data: data, Source: SourceLive, Elapsed: elapsed}, nil
	}

	if fallback == nil {
		return Result[T]{Source: SourceLive, Elapsed: elapsed}, err
	}

	metrics.FallbackServed.WithLabelValues(name).Inc()
	w.log.Warn("query failed, serving fallback data",
		zap.String("query", name),
		zap.Error(err),
	)
	return Result[T]{Data: *fallback, Source: SourceFallback, Elapsed: elapsed}, nil
}
