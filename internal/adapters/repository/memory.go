package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/metrics"
)

type shard struct {
	mu       sync.Mutex
	auth     map[string]time.Time
	profiles map[string]model.Profile
}

// MemoryStore is an in-process Store. Identities are spread over
// hash-sharded locks; each identity's check-and-set runs under its
// shard's lock, so unrelated identities never contend.
type MemoryStore struct {
	shards                []*shard
	mask                  uint32
	shardCount            int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore builds the store and starts its metrics updater, which
// runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		shardCount:            32,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	n := 1
	for n < s.shardCount {
		n <<= 1
	}
	s.shardCount = n
	s.mask = uint32(n - 1)
	s.shards = make([]*shard, n)
	for i := range s.shards {
		s.shards[i] = &shard{
			auth:     make(map[string]time.Time),
			profiles: make(map[string]model.Profile),
		}
	}

	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return s.shards[h.Sum32()&s.mask]
}

func (s *MemoryStore) closed() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

// TryAuthorize implements AuthorizationStore.
func (s *MemoryStore) TryAuthorize(ctx context.Context, identity string, now time.Time, cooldown time.Duration) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	if s.closed() {
		return time.Time{}, false, ErrClosed
	}
	if identity == "" {
		return time.Time{}, false, ErrEmptyIdentity
	}

	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	last, ok := sh.auth[identity]
	if ok && now.Sub(last) < cooldown {
		return last, false, nil
	}
	sh.auth[identity] = now
	return now, true, nil
}

// LastAuthorized implements AuthorizationStore.
func (s *MemoryStore) LastAuthorized(ctx context.Context, identity string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	if s.closed() {
		return time.Time{}, false, ErrClosed
	}

	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	last, ok := sh.auth[identity]
	return last, ok, nil
}

// LoadProfile implements ProfileStore.
func (s *MemoryStore) LoadProfile(ctx context.Context, identity string) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}
	if s.closed() {
		return model.Profile{}, ErrClosed
	}

	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	p, ok := sh.profiles[identity]
	if !ok {
		return model.Profile{}, ErrNotFound
	}
	return p.Clone(), nil
}

// SaveProfile implements ProfileStore.
func (s *MemoryStore) SaveProfile(ctx context.Context, p model.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed() {
		return ErrClosed
	}
	if p.Username == "" {
		return ErrEmptyIdentity
	}

	sh := s.shardFor(p.Username)
	sh.mu.Lock()
	sh.profiles[p.Username] = p.Clone()
	sh.mu.Unlock()
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.closed() {
		return ErrClosed
	}
	return ctx.Err()
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.auth)
		sh.mu.Unlock()
	}
	return total, nil
}

// Close stops the metrics updater. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdateTrackedIdentities(n)
			}
		}
	}()
}
