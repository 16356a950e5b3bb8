package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/aryan-mod/suraksha-setu/internal/cache"
	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/internal/push"
	"github.com/aryan-mod/suraksha-setu/internal/replay"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
)

// DefaultDedupWindow is how many recently pushed notification IDs the
// worker remembers for duplicate suppression.
const DefaultDedupWindow = 256

var (
	// ErrStopped is returned for work submitted after Stop.
	ErrStopped = errors.New("worker: stopped")

	// ErrUnknownTag is returned for sync triggers carrying a tag the
	// worker does not service.
	ErrUnknownTag = errors.New("worker: unknown sync tag")
)

// PushInput is one push request: a notification payload bound for every
// device a user has registered.
type PushInput struct {
	NotificationID string
	UserID         string
	Payload        []byte
}

// PushOutcome reports what the worker did with a push request.
type PushOutcome struct {
	Result       push.Result `json:"result"`
	Deduplicated bool        `json:"deduplicated,omitempty"`
	Queued       bool        `json:"queued,omitempty"`
}

// Worker is the single goroutine that owns cache serving, push dispatch
// and replay drains. All requests funnel through its mailbox, so cache
// state and the dedup window never need locks and queue drains are
// naturally serialized with the pushes that feed the queue.
type Worker struct {
	engine     *cache.Engine
	queue      *replay.Queue
	dispatcher *push.Dispatcher
	log        *zap.Logger

	tasks chan func()
	quit  chan struct{}
	done  chan struct{}

	stopOnce sync.Once
	seen     *seenSet
}

// Config wires the worker's collaborators.
type Config struct {
	Engine     *cache.Engine
	Queue      *replay.Queue
	Dispatcher *push.Dispatcher

	// DedupWindow overrides DefaultDedupWindow when positive.
	DedupWindow int

	// Mailbox bounds how many requests may wait; zero means 64.
	Mailbox int
}

// New constructs a Worker. Call Start before submitting work.
func New(cfg Config) (*Worker, error) {
	if cfg.Engine == nil {
		return nil, errors.New("worker: cache engine is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("worker: push dispatcher is required")
	}

	window := cfg.DedupWindow
	if window <= 0 {
		window = DefaultDedupWindow
	}
	mailbox := cfg.Mailbox
	if mailbox <= 0 {
		mailbox = 64
	}

	return &Worker{
		engine:     cfg.Engine,
		queue:      cfg.Queue,
		dispatcher: cfg.Dispatcher,
		log:        logger.WithModule("worker"),
		tasks:      make(chan func(), mailbox),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		seen:       newSeenSet(window),
	}, nil
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop shuts the worker down and waits for the goroutine to exit.
// Requests already in the mailbox still run; later submissions fail with
// ErrStopped.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.quit:
			// Drain what already arrived before exiting.
			for {
				select {
				case task := <-w.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

func (w *Worker) submit(ctx context.Context, task func()) error {
	select {
	case <-w.quit:
		return ErrStopped
	default:
	}

	select {
	case w.tasks <- task:
		return nil
	case <-w.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch serves a cache request for the given request class through the
// strategy engine.
func (w *Worker) Fetch(ctx context.Context, class, key string) ([]byte, error) {
	type fetchResult struct {
		payload []byte
		err     error
	}

	ch := make(chan fetchResult, 1)
	if err := w.submit(ctx, func() {
		payload, err := w.engine.Fetch(ctx, class, key)
		ch <- fetchResult{payload: payload, err: err}
	}); err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Push fans the payload out to the user's subscriptions. Duplicate
// notification IDs inside the dedup window are dropped. A delivery that
// reaches nobody is parked on the replay queue for the next sync.
func (w *Worker) Push(ctx context.Context, input PushInput) (PushOutcome, error) {
	ch := make(chan PushOutcome, 1)
	errCh := make(chan error, 1)
	if err := w.submit(ctx, func() {
		outcome, err := w.push(ctx, input)
		if err != nil {
			errCh <- err
			return
		}
		ch <- outcome
	}); err != nil {
		return PushOutcome{}, err
	}

	select {
	case outcome := <-ch:
		return outcome, nil
	case err := <-errCh:
		return PushOutcome{}, err
	case <-ctx.Done():
		return PushOutcome{}, ctx.Err()
	}
}

func (w *Worker) push(ctx context.Context, input PushInput) (PushOutcome, error) {
	if input.UserID == "" {
		return PushOutcome{}, errors.New("worker: user id is required")
	}

	if input.NotificationID != "" && w.seen.Contains(input.NotificationID) {
		w.log.Debug("duplicate push suppressed",
			zap.String("notification_id", input.NotificationID),
		)
		return PushOutcome{Deduplicated: true}, nil
	}

	result, err := w.dispatcher.Dispatch(ctx, input.UserID, input.Payload)
	if err != nil {
		return PushOutcome{}, fmt.Errorf("worker: dispatch: %w", err)
	}

	if input.NotificationID != "" {
		w.seen.Add(input.NotificationID)
	}

	outcome := PushOutcome{Result: result}
	if result.Total > 0 && result.Sent == 0 {
		outcome.Queued = w.park(ctx, input)
	}
	return outcome, nil
}

// park stores an undeliverable push for replay. Queue writes failing is
// not fatal: the notification row itself survives, only retry is lost.
func (w *Worker) park(ctx context.Context, input PushInput) bool {
	if w.queue == nil {
		return false
	}

	record := models.PendingDelivery{
		NotificationID: input.NotificationID,
		UserID:         input.UserID,
		Payload:        datatypes.JSON(input.Payload),
	}
	if err := w.queue.Enqueue(ctx, record); err != nil {
		w.log.Warn("failed to park undelivered push",
			zap.String("notification_id", input.NotificationID),
			zap.String("user_id", input.UserID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Sync handles a connectivity-restoration trigger. Only the notification
// sync tag drains the replay queue; any other tag is rejected.
func (w *Worker) Sync(ctx context.Context, tag string) (replay.DrainResult, error) {
	if tag != replay.SyncTag {
		return replay.DrainResult{}, ErrUnknownTag
	}
	if w.queue == nil {
		return replay.DrainResult{}, nil
	}

	type syncResult struct {
		result replay.DrainResult
		err    error
	}

	ch := make(chan syncResult, 1)
	if err := w.submit(ctx, func() {
		result, err := w.queue.DrainAll(ctx, w.dispatcher.DispatchRecord)
		ch <- syncResult{result: result, err: err}
	}); err != nil {
		return replay.DrainResult{}, err
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		return replay.DrainResult{}, ctx.Err()
	}
}
