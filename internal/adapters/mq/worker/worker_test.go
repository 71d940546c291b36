package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/gamespin/internal/adapters/mq/queue"
	worker "github.com/okian/gamespin/internal/adapters/mq/worker"
	model "github.com/okian/gamespin/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var errPermanent = errors.New("permanent")

// mockSaver records saves and fails the first failures calls.
type mockSaver struct {
	mu       sync.Mutex
	saved    []model.Profile
	calls    int
	failures int
	err      error
}

func (m *mockSaver) SaveProfile(_ context.Context, p model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return m.err
	}
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockSaver) snapshot() ([]model.Profile, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Profile(nil), m.saved...), m.calls
}

func TestSaveWorker(t *testing.T) {
	convey.Convey("Given a queue and a save worker", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()

		convey.Convey("When snapshots are enqueued and the worker drains", func() {
			saver := &mockSaver{}
			var notified []string
			w := worker.NewSaveWorker(q, saver, worker.WithOnSaved(func(s worker.Snapshot) {
				notified = append(notified, s.Profile.Username)
			}))
			go w.Run(ctx)

			q.Enqueue(ctx, queue.Snapshot{Profile: model.Profile{Username: "alice", Won: model.WonCollection{"hades"}}})
			q.Enqueue(ctx, queue.Snapshot{Profile: model.Profile{Username: "bob"}})

			drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			err := w.Drain(drainCtx)

			convey.Convey("Then every snapshot reaches the saver", func() {
				convey.So(err, convey.ShouldBeNil)
				saved, _ := saver.snapshot()
				convey.So(len(saved), convey.ShouldEqual, 2)
				convey.So(saved[0].Username, convey.ShouldEqual, "alice")
				convey.So(notified, convey.ShouldResemble, []string{"alice", "bob"})
			})
		})

		convey.Convey("When the saver fails transiently", func() {
			saver := &mockSaver{failures: 2, err: errors.New("flaky")}
			w := worker.NewSaveWorker(q, saver, worker.WithRetry(3, time.Millisecond))
			go w.Run(ctx)

			q.Enqueue(ctx, queue.Snapshot{Profile: model.Profile{Username: "alice"}, Version: 2})
			drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			convey.So(w.Drain(drainCtx), convey.ShouldBeNil)

			convey.Convey("Then the save is retried until it succeeds", func() {
				saved, calls := saver.snapshot()
				convey.So(calls, convey.ShouldEqual, 3)
				convey.So(len(saved), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the error is not retryable", func() {
			saver := &mockSaver{failures: 5, err: errPermanent}
			var failed []uint64
			var failErr error
			w := worker.NewSaveWorker(q, saver,
				worker.WithRetry(3, time.Millisecond),
				worker.WithRetryIf(func(err error) bool { return !errors.Is(err, errPermanent) }),
				worker.WithOnFailed(func(s worker.Snapshot, err error) {
					failed = append(failed, s.Version)
					failErr = err
				}),
			)
			go w.Run(ctx)

			q.Enqueue(ctx, queue.Snapshot{Profile: model.Profile{Username: "alice"}, Version: 2})
			drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			convey.So(w.Drain(drainCtx), convey.ShouldBeNil)

			convey.Convey("Then it is attempted once and reported as failed", func() {
				saved, calls := saver.snapshot()
				convey.So(calls, convey.ShouldEqual, 1)
				convey.So(saved, convey.ShouldBeEmpty)
				convey.So(failed, convey.ShouldResemble, []uint64{2})
				convey.So(errors.Is(failErr, errPermanent), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			w := worker.NewSaveWorker(q, &mockSaver{}, worker.WithName("test-saver"))
			go w.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When drain times out because Run never started", func() {
			w := worker.NewSaveWorker(q, &mockSaver{})
			drainCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			convey.Convey("Then the deadline is reported", func() {
				err := w.Drain(drainCtx)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}
