// Package worker persists queued profile snapshots in the background.
package worker

import (
	"time"

	"github.com/okian/gamespin/pkg/logger"
)

// Option applies a configuration option to the SaveWorker.
type Option func(*SaveWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *SaveWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *SaveWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetry sets how many times a save is attempted and the pause
// between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(w *SaveWorker) {
		if attempts > 0 {
			w.attempts = attempts
		}
		if backoff >= 0 {
			w.backoff = backoff
		}
	}
}

// WithRetryIf limits retries to errors for which retry returns true.
func WithRetryIf(retry func(error) bool) Option {
	return func(w *SaveWorker) {
		if retry != nil {
			w.retryIf = retry
		}
	}
}

// WithOnSaved registers a callback run after each successful save.
func WithOnSaved(f func(Snapshot)) Option {
	return func(w *SaveWorker) {
		w.onSaved = f
	}
}

// WithOnFailed registers a callback run when a snapshot is given up on.
func WithOnFailed(f func(Snapshot, error)) Option {
	return func(w *SaveWorker) {
		w.onFailed = f
	}
}
