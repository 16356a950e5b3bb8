package middleware

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aryan-mod/suraksha-setu/pkg/errors"
	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
	"github.com/aryan-mod/suraksha-setu/pkg/response"
)

const limiterShards = 64

// Limiter is a sliding-window admission controller keyed by client
// identity. State is process-local: under multi-instance deployment the
// limit applies per instance, which is a documented scaling boundary.
type Limiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	// Identifiers are sharded so concurrent admission checks for the same
	// identifier serialize on one mutex without a global lock.
	shards [limiterShards]limiterShard
}

type limiterShard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// LimiterOption customises a Limiter.
type LimiterOption func(*Limiter)

// WithLimiterClock overrides the time source, primarily for tests.
func WithLimiterClock(clock func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLimiter constructs a sliding-window limiter admitting at most limit
// requests per identifier within the window.
func NewLimiter(limit int, window time.Duration, opts ...LimiterOption) *Limiter {
	limiter := &Limiter{
		limit:  limit,
		window: window,
		clock:  time.Now,
	}
	for i := range limiter.shards {
		limiter.shards[i].windows = make(map[string][]time.Time)
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// Admit filters the identifier's retained timestamps to the current
// window, then accepts iff the remaining count is below the limit,
// recording the request instant only on acceptance.
func (l *Limiter) Admit(identifier string) (admitted bool, remaining int) {
	if l.limit <= 0 || l.window <= 0 {
		return true, 0
	}

	now := l.clock()
	cutoff := now.Add(-l.window)

	shard := l.shard(identifier)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	stamps := shard.windows[identifier]
	live := stamps[:0]
	for _, stamp := range stamps {
		// A timestamp aged exactly one window still counts.
		if !stamp.Before(cutoff) {
			live = append(live, stamp)
		}
	}

	if len(live) >= l.limit {
		shard.windows[identifier] = live
		return false, 0
	}

	live = append(live, now)
	shard.windows[identifier] = live
	return true, l.limit - len(live)
}

// Sweep drops identifiers idle beyond one window, bounding memory during
// extended quiet periods. Scheduled from the maintenance cron.
func (l *Limiter) Sweep() int {
	cutoff := l.clock().Add(-l.window)
	removed := 0

	for i := range l.shards {
		shard := &l.shards[i]
		shard.mu.Lock()
		for identifier, stamps := range shard.windows {
			if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
				delete(shard.windows, identifier)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Tracked reports the number of identifiers currently retained.
func (l *Limiter) Tracked() int {
	total := 0
	for i := range l.shards {
		shard := &l.shards[i]
		shard.mu.Lock()
		total += len(shard.windows)
		shard.mu.Unlock()
	}
	return total
}

func (l *Limiter) shard(identifier string) *limiterShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return &l.shards[h.Sum32()%limiterShards]
}

// RateLimit rejects requests once a client exceeds the limiter's window.
// Rejection is a distinct 429 status; the server never retries on the
// caller's behalf.
func RateLimit(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		admitted, remaining := limiter.Admit(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(limiter.window.Seconds())))

		if !admitted {
			metrics.RateLimitDecisions.WithLabelValues("rejected").Inc()
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		metrics.RateLimitDecisions.WithLabelValues("admitted").Inc()
		c.Next()
	}
}
