package push

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
)

// Subscriptions provides the registered subscription set for a user.
type Subscriptions interface {
	ListForUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
	Get(ctx context.Context, subscriptionID string) (models.PushSubscription, error)
	Remove(ctx context.Context, subscriptionID string) error
}

// Result aggregates one fan-out dispatch.
type Result struct {
	Sent  int `json:"sent"`
	Total int `json:"total"`
}

// Dispatcher fans a notification out to every subscription a user holds.
// Each delivery is attempted independently: one subscription failing never
// blocks or fails the others, and the call itself only errors when the
// subscription set cannot be loaded. Retry is the replay queue's business,
// not the dispatcher's.
type Dispatcher struct {
	subs      Subscriptions
	transport Transport
	log       *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(subs Subscriptions, transport Transport) (*Dispatcher, error) {
	if subs == nil {
		return nil, errors.New("push: subscriptions source is required")
	}
	if transport == nil {
		return nil, errors.New("push: transport is required")
	}
	return &Dispatcher{
		subs:      subs,
		transport: transport,
		log:       logger.WithModule("push"),
	}, nil
}

// Dispatch delivers the payload to all of the user's subscriptions. A user
// with no subscriptions is not an error: the call succeeds with Sent == 0.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, payload []byte) (Result, error) {
	subs, err := d.subs.ListForUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("push: load subscriptions: %w", err)
	}

	result := Result{Total: len(subs)}
	var failures error

	for _, sub := range subs {
		if err := d.deliver(ctx, sub, payload); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		result.Sent++
	}

	if failures != nil {
		d.log.Warn("partial push delivery",
			zap.String("user_id", userID),
			zap.Int("sent", result.Sent),
			zap.Int("total", result.Total),
			zap.Error(failures),
		)
	}

	return result, nil
}

// DispatchRecord redelivers a queued record. Records pinned to a single
// subscription go only there; records without one fan out to the user and
// fail when no delivery lands, so the replay queue retries them.
func (d *Dispatcher) DispatchRecord(ctx context.Context, record models.PendingDelivery) error {
	if record.SubscriptionID != "" {
		sub, err := d.subs.Get(ctx, record.SubscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The device unregistered while the record was queued.
				return nil
			}
			return fmt.Errorf("push: load subscription: %w", err)
		}
		return d.deliver(ctx, sub, []byte(record.Payload))
	}

	result, err := d.Dispatch(ctx, record.UserID, []byte(record.Payload))
	if err != nil {
		return err
	}
	if result.Total > 0 && result.Sent == 0 {
		return errors.New("push: no subscription reachable")
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	err := d.transport.Send(ctx, sub.Handle, payload)
	switch {
	case err == nil:
		metrics.PushDeliveries.WithLabelValues("sent").Inc()
		return nil
	case errors.Is(err, ErrSubscriptionGone):
		metrics.PushDeliveries.WithLabelValues("gone").Inc()
		d.log.Info("removing gone subscription",
			zap.String("subscription_id", sub.ID),
			zap.String("user_id", sub.UserID),
		)
		if removeErr := d.subs.Remove(ctx, sub.ID); removeErr != nil {
			d.log.Warn("failed to remove gone subscription",
				zap.String("subscription_id", sub.ID),
				zap.Error(removeErr),
			)
		}
		return err
	default:
		metrics.PushDeliveries.WithLabelValues("failed").Inc()
		return err
	}
}
