package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gamespin/internal/adapters/mq/queue"
	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/logger"
	"github.com/okian/gamespin/pkg/metrics"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 250 * time.Millisecond
)

// Snapshot is what the worker reads off the queue.
type Snapshot = queue.Snapshot

// Saver persists a profile.
type Saver interface {
	SaveProfile(ctx context.Context, p model.Profile) error
}

// Queue defines how the worker receives snapshots.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Snapshot
	Close() error
}

// SaveWorker drains a queue into a Saver, one snapshot at a time.
type SaveWorker struct {
	queue    Queue
	saver    Saver
	name     string
	attempts int
	backoff  time.Duration
	retryIf  func(error) bool
	onSaved  func(Snapshot)
	onFailed func(Snapshot, error)

	// Shutdown control
	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
	done      chan struct{}

	logger logger.Logger
}

// NewSaveWorker creates a new worker with configuration options.
func NewSaveWorker(q Queue, saver Saver, opts ...Option) *SaveWorker {
	w := &SaveWorker{
		queue:    q,
		saver:    saver,
		name:     "saver",
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		retryIf:  func(error) bool { return true },
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run consumes snapshots until the queue is closed and drained, ctx is
// cancelled, or Shutdown is called. It must be called at most once.
func (w *SaveWorker) Run(ctx context.Context) {
	started := false
	w.startOnce.Do(func() { started = true })
	if !started {
		return
	}
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := w.save(ctx, s); err != nil {
				w.logger.Error(ctx, "profile save failed", logger.String("identity", s.Profile.Username), logger.Error(err))
				if w.onFailed != nil {
					w.onFailed(s, err)
				}
			}
		}
	}
}

func (w *SaveWorker) save(ctx context.Context, s Snapshot) error { //nolint:gocritic // hugeParam: snapshots are values
	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		err = w.saver.SaveProfile(ctx, s.Profile)
		if err == nil {
			metrics.RecordSaveQueue("save", metrics.ResultOK)
			if w.onSaved != nil {
				w.onSaved(s)
			}
			return nil
		}
		if !w.retryIf(err) || attempt == w.attempts {
			break
		}
		w.logger.Debug(ctx, "retrying profile save", logger.Int("attempt", attempt), logger.Error(err))

		timer := time.NewTimer(w.backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			metrics.RecordSaveQueue("save", metrics.ResultError)
			return ctx.Err()
		}
	}
	metrics.RecordSaveQueue("save", metrics.ResultError)
	return fmt.Errorf("save %s: %w", s.Profile.Username, err)
}

// Drain closes the queue and waits until every pending snapshot has been
// handed to the Saver.
func (w *SaveWorker) Drain(ctx context.Context) error {
	_ = w.queue.Close()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "drain timed out")
		return fmt.Errorf("drain timed out: %w", ctx.Err())
	}
}

// Shutdown stops the worker without waiting for pending snapshots.
func (w *SaveWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
