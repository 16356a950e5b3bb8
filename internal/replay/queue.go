package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
)

// SyncTag is the only connectivity-restoration tag that triggers a drain.
// Any other tag is ignored.
const SyncTag = "background-sync-notifications"

// DefaultMaxAttempts bounds retries per record before it is discarded.
const DefaultMaxAttempts = 5

// DispatchFunc attempts redelivery of a single queued record.
type DispatchFunc func(ctx context.Context, record models.PendingDelivery) error

// DrainResult aggregates the outcome of one drain pass.
type DrainResult struct {
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Discarded int  `json:"discarded"`
	Coalesced bool `json:"coalesced,omitempty"`
}

// Queue is a durable FIFO of undelivered notifications. It is the sole
// writer of pending delivery rows; records leave only on confirmed
// dispatch success or when the retry bound discards them.
type Queue struct {
	db          *gorm.DB
	maxAttempts int
	clock       func() time.Time
	log         *zap.Logger

	draining  sync.Mutex
	onDiscard func(models.PendingDelivery)
}

// Option customises a Queue.
type Option func(*Queue)

// WithMaxAttempts overrides the retry bound.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(q *Queue) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// WithDiscardHook registers a callback invoked exactly once per record that
// exhausts its retry bound.
func WithDiscardHook(hook func(models.PendingDelivery)) Option {
	return func(q *Queue) {
		q.onDiscard = hook
	}
}

// NewQueue constructs a replay queue over the supplied database.
func NewQueue(db *gorm.DB, opts ...Option) (*Queue, error) {
	if db == nil {
		return nil, errors.New("replay: db is required")
	}
	queue := &Queue{
		db:          db,
		maxAttempts: DefaultMaxAttempts,
		clock:       time.Now,
		log:         logger.WithModule("replay"),
	}
	for _, opt := range opts {
		opt(queue)
	}
	return queue, nil
}

// Enqueue appends a record in arrival order.
func (q *Queue) Enqueue(ctx context.Context, record models.PendingDelivery) error {
	if record.QueuedAt.IsZero() {
		record.QueuedAt = q.clock()
	}
	if err := q.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("replay: enqueue: %w", err)
	}

	q.observeDepth(ctx)
	return nil
}

// Len reports the number of queued records.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&models.PendingDelivery{}).Count(&count).Error
	return count, err
}

// DrainAll walks the queue in FIFO order, invoking dispatch per record.
// Records are removed on success; failures increment the attempt counter
// and stay queued until the retry bound discards them. Only one drain runs
// at a time: a trigger arriving mid-drain coalesces into a no-op, since
// the in-flight drain already covers everything enqueued before it began.
func (q *Queue) DrainAll(ctx context.Context, dispatch DispatchFunc) (DrainResult, error) {
	if !q.draining.TryLock() {
		return DrainResult{Coalesced: true}, nil
	}
	defer q.draining.Unlock()

	var records []models.PendingDelivery
	if err := q.db.WithContext(ctx).
		Order("queued_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return DrainResult{}, fmt.Errorf("replay: load queue: %w", err)
	}

	var result DrainResult
	for _, record := range records {
		if err := dispatch(ctx, record); err != nil {
			result.Failed++
			q.recordFailure(ctx, record, err, &result)
			continue
		}

		result.Succeeded++
		metrics.ReplayDrains.WithLabelValues("succeeded").Inc()
		if err := q.db.WithContext(ctx).Delete(&models.PendingDelivery{}, record.ID).Error; err != nil {
			q.log.Warn("failed to remove delivered record", zap.Uint("id", record.ID), zap.Error(err))
		}
	}

	q.observeDepth(ctx)
	q.log.Info("replay drain complete",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("discarded", result.Discarded),
	)
	return result, nil
}

func (q *Queue) recordFailure(ctx context.Context, record models.PendingDelivery, cause error, result *DrainResult) {
	now := q.clock()
	record.Attempts++
	record.LastAttemptAt = &now
	metrics.ReplayDrains.WithLabelValues("failed").Inc()

	if record.Attempts >= q.maxAttempts {
		result.Discarded++
		metrics.ReplayDrains.WithLabelValues("discarded").Inc()
		q.log.Error("delivery permanently failed, discarding",
			zap.String("notification_id", record.NotificationID),
			zap.String("user_id", record.UserID),
			zap.Int("attempts", record.Attempts),
			zap.Error(cause),
		)
		if err := q.db.WithContext(ctx).Delete(&models.PendingDelivery{}, record.ID).Error; err != nil {
			q.log.Warn("failed to discard exhausted record", zap.Uint("id", record.ID), zap.Error(err))
		}
		if q.onDiscard != nil {
			q.onDiscard(record)
		}
		return
	}

	if err := q.db.WithContext(ctx).Model(&models.PendingDelivery{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"attempts":        record.Attempts,
			"last_attempt_at": now,
		}).Error; err != nil {
		q.log.Warn("failed to record delivery attempt", zap.Uint("id", record.ID), zap.Error(err))
	}
}

func (q *Queue) observeDepth(ctx context.Context) {
	if depth, err := q.Len(ctx); err == nil {
		metrics.ReplayQueueDepth.Set(float64(depth))
	}
}
