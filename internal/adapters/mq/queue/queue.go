// Package queue holds profile snapshots waiting to be persisted.
//
// Snapshots coalesce per identity: enqueuing a newer snapshot while an
// older one is still pending replaces it in place, so a slow or offline
// gate never makes the queue grow with stale copies.
package queue

import (
	"context"
	"sync"

	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/metrics"
)

const defaultQueueCapacity = 16

// Snapshot is one profile state waiting to be persisted. Version is the
// producer's change counter at the time the snapshot was taken.
type Snapshot struct {
	Profile model.Profile
	Version uint64
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds or replaces the pending snapshot for s.Profile.Username.
	// Returns false if the queue is closed or full.
	Enqueue(ctx context.Context, s Snapshot) bool

	// Dequeue returns a channel that receives snapshots in first-enqueued
	// order. The channel is closed once the queue is closed and drained.
	// Only one consumer is supported.
	Dequeue(ctx context.Context) <-chan Snapshot

	// Len returns the number of pending snapshots.
	Len(ctx context.Context) int

	// Close stops accepting snapshots. Pending ones are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue with an ordered map guarded by a mutex.
type InMemoryQueue struct {
	mu       sync.Mutex
	order    []string
	pending  map[string]Snapshot
	capacity int
	closed   bool

	signal chan struct{}
	done   chan struct{}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		pending:  make(map[string]Snapshot),
		capacity: defaultQueueCapacity,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	metrics.UpdateSaveQueueSize(0)
	return q
}

// Enqueue adds a snapshot or replaces the pending one for the same identity.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Snapshot) bool { //nolint:gocritic // hugeParam: snapshots are values
	if ctx.Err() != nil {
		metrics.RecordSaveQueue("enqueue", metrics.ResultError)
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordSaveQueue("enqueue", metrics.ResultError)
		return false
	}

	s.Profile = s.Profile.Clone()
	id := s.Profile.Username
	if _, ok := q.pending[id]; ok {
		q.pending[id] = s
		metrics.RecordSaveQueue("coalesce", metrics.ResultOK)
		return true
	}
	if len(q.order) >= q.capacity {
		metrics.RecordSaveQueue("enqueue", metrics.ResultDropped)
		return false
	}

	q.order = append(q.order, id)
	q.pending[id] = s
	metrics.RecordSaveQueue("enqueue", metrics.ResultOK)
	metrics.UpdateSaveQueueSize(len(q.order))

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// pop takes the oldest pending snapshot. closed is read under the same
// lock, so a consumer only stops once the queue is both closed and empty.
func (q *InMemoryQueue) pop() (s Snapshot, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return Snapshot{}, false, q.closed
	}
	id := q.order[0]
	q.order = q.order[1:]
	s = q.pending[id]
	delete(q.pending, id)
	metrics.UpdateSaveQueueSize(len(q.order))
	return s, true, q.closed
}

// Dequeue returns a channel that will receive snapshots as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for {
			s, ok, closed := q.pop()
			if ok {
				select {
				case out <- s:
					metrics.RecordSaveQueue("dequeue", metrics.ResultOK)
				case <-ctx.Done():
					return
				}
				continue
			}
			if closed {
				return
			}
			select {
			case <-q.signal:
			case <-q.done:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending snapshots.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Close stops accepting snapshots.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.closed = true
	close(q.done)
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
