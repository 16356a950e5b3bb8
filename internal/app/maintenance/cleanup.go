package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aryan-mod/suraksha-setu/internal/cache"
	"github.com/aryan-mod/suraksha-setu/internal/middleware"
	"github.com/aryan-mod/suraksha-setu/internal/services"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
)

const (
	defaultNotificationSpec = "@hourly"
	defaultCacheSpec        = "@hourly"
	defaultLimiterSpec      = "@hourly"
)

// Cleaner coordinates background maintenance: purging expired
// notifications, sweeping the persistent cache tier, and dropping idle
// rate limiter state. Replay drains are not scheduled here; they fire
// only on the client's sync trigger.
type Cleaner struct {
	notifications *services.NotificationService
	cacheStore    *cache.DatabaseStore
	limiter       *middleware.Limiter
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	enabled       bool

	notificationSchedule string
	cacheSchedule        string
	limiterSchedule      string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithNotificationSchedule overrides the notification sweep cron spec.
func WithNotificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.notificationSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the persistent cache sweep cron spec.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithLimiterSchedule overrides the limiter sweep cron spec.
func WithLimiterSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.limiterSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil
// dependency results in the corresponding job being skipped.
func NewCleaner(notifications *services.NotificationService, cacheStore *cache.DatabaseStore, limiter *middleware.Limiter, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		notifications:        notifications,
		cacheStore:           cacheStore,
		limiter:              limiter,
		now:                  time.Now,
		notificationSchedule: defaultNotificationSpec,
		cacheSchedule:        defaultCacheSpec,
		limiterSchedule:      defaultLimiterSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.notifications != nil ||
		cleaner.cacheStore != nil ||
		cleaner.limiter != nil

	return cleaner
}

// Start registers jobs with the cron scheduler and launches it if at
// least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.notifications != nil {
		if _, err := c.cron.AddFunc(c.notificationSchedule, func() {
			if removed, err := c.notifications.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("notification sweep failed", zap.Error(err))
			} else if removed > 0 {
				c.log.Info("expired notifications removed", zap.Int64("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	if c.cacheStore != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if removed, err := c.cacheStore.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("cache sweep failed", zap.Error(err))
			} else if removed > 0 {
				c.log.Info("expired cache entries removed", zap.Int64("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	if c.limiter != nil {
		if _, err := c.cron.AddFunc(c.limiterSchedule, func() {
			if removed := c.limiter.Sweep(); removed > 0 {
				c.log.Info("idle rate limiter identifiers removed", zap.Int("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (c *Cleaner) Stop() {
	if c.cron == nil {
		return
	}
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunOnce executes every configured job immediately. Used by tests and
// the startup path to begin from a clean slate.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	if c.notifications != nil {
		if _, err := c.notifications.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.cacheStore != nil {
		if _, err := c.cacheStore.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.limiter != nil {
		c.limiter.Sweep()
	}

	return errs
}
