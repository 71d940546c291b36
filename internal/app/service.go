// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/gamespin/internal/adapters/repository"
	"github.com/okian/gamespin/internal/domain/catalog"
	"github.com/okian/gamespin/internal/domain/gate"
	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/clock"
	"github.com/okian/gamespin/pkg/logger"
	"github.com/okian/gamespin/pkg/metrics"
)

// Store backends accepted by WithBackend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ErrNotStarted is returned by every operation before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the spin gate.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	gate    *gate.Gate
	catalog *catalog.Catalog

	// Configuration
	backend        string
	pgDSN          string
	pgMaxConns     int
	shardCount     int
	cooldown       time.Duration
	identityMaxLen int
	catalogPath    string
	clock          clock.Clock

	// State
	started   bool
	startedAt time.Time
	ownsStore bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend selects the store built by Start: memory or postgres.
func WithBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

// WithPostgres sets the connection used by the postgres backend.
func WithPostgres(dsn string, maxConns int) Option {
	return func(s *Service) {
		s.pgDSN = dsn
		if maxConns > 0 {
			s.pgMaxConns = maxConns
		}
	}
}

// WithShardCount sets the lock shards of the memory backend.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithStore injects a ready store; Start will not build one and Stop
// will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCooldown sets the authorization window.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithIdentityMaxLen bounds identity length.
func WithIdentityMaxLen(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.identityMaxLen = n
		}
	}
}

// WithCatalogPath loads the catalog from a YAML file instead of the
// embedded default.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		s.catalogPath = path
	}
}

// WithClock sets the time source for the gate and profile timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:        BackendMemory,
		pgMaxConns:     10,
		shardCount:     32,
		cooldown:       gate.DefaultCooldown,
		identityMaxLen: gate.DefaultMaxIdentityLen,
		clock:          clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store, loads the catalog and creates the gate.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting gate service...")

	cat, err := catalog.Load(s.catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}

	g, err := gate.New(s.store,
		gate.WithCooldown(s.cooldown),
		gate.WithMaxIdentityLen(s.identityMaxLen),
		gate.WithClock(s.clock),
		gate.WithLogger(s.logger.Named("gate")),
	)
	if err != nil {
		return err
	}

	s.catalog = cat
	s.gate = g
	s.started = true
	s.startedAt = s.clock.Now()
	s.logger.Info(ctx, "gate service started",
		logger.String("backend", s.backend),
		logger.Duration("cooldown", s.cooldown),
		logger.Int("catalog_entries", cat.Len()),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.backend {
	case BackendMemory:
		s.logger.Info(ctx, "using memory store", logger.Int("shards", s.shardCount))
		return repository.NewMemoryStore(ctx, repository.WithShardCount(s.shardCount)), nil
	case BackendPostgres:
		s.logger.Info(ctx, "using postgres store", logger.Int("max_conns", s.pgMaxConns))
		store, err := repository.NewPostgresStore(ctx, s.pgDSN, repository.WithMaxConns(int32(s.pgMaxConns)))
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrUnknownBackend, s.backend)
	}
}

// Stop closes the store if Start opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping gate service...")
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(context.Background(), "gate service stopped")
}

func (s *Service) components() (*gate.Gate, repository.Store, *catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.gate, s.store, s.catalog, nil
}

// Authorize consumes a spin permit for identity.
func (s *Service) Authorize(ctx context.Context, identity string) (gate.Decision, error) {
	g, _, _, err := s.components()
	if err != nil {
		return gate.Decision{}, err
	}
	return g.Authorize(ctx, identity)
}

// CheckStatus answers without consuming a permit.
func (s *Service) CheckStatus(ctx context.Context, identity string) (gate.Status, error) {
	g, _, _, err := s.components()
	if err != nil {
		return gate.Status{}, err
	}
	return g.CheckStatus(ctx, identity)
}

// LoadProfile returns the stored profile; found is false for unknown
// identities.
func (s *Service) LoadProfile(ctx context.Context, identity string) (model.Profile, bool, error) {
	g, store, _, err := s.components()
	if err != nil {
		return model.Profile{}, false, err
	}
	id, err := g.NormalizeIdentity(identity)
	if err != nil {
		metrics.RecordProfileOperation("load", metrics.ResultInvalid)
		return model.Profile{}, false, err
	}

	p, err := store.LoadProfile(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordProfileOperation("load", metrics.ResultOK)
		return model.Profile{}, false, nil
	case err != nil:
		metrics.RecordProfileOperation("load", metrics.ResultError)
		metrics.RecordStoreError("load_profile")
		return model.Profile{}, false, fmt.Errorf("%w: %w", gate.ErrStoreUnavailable, err)
	}
	metrics.RecordProfileOperation("load", metrics.ResultOK)
	if p.Won == nil {
		p.Won = model.WonCollection{}
	}
	return p, true, nil
}

// SaveProfile replaces the stored profile. The won collection is
// de-duplicated and every entry must exist in the catalog.
func (s *Service) SaveProfile(ctx context.Context, p model.Profile) error {
	g, store, cat, err := s.components()
	if err != nil {
		return err
	}
	id, err := g.NormalizeIdentity(p.Username)
	if err != nil {
		metrics.RecordProfileOperation("save", metrics.ResultInvalid)
		return err
	}

	p.Username = id
	p.Won = p.Won.Normalize()
	if err := cat.Validate(p.Won); err != nil {
		metrics.RecordProfileOperation("save", metrics.ResultInvalid)
		return err
	}
	p.UpdatedAt = s.clock.Now().UTC()

	if err := store.SaveProfile(ctx, p); err != nil {
		metrics.RecordProfileOperation("save", metrics.ResultError)
		metrics.RecordStoreError("save_profile")
		s.logger.Error(ctx, "profile save failed", logger.String("identity", id), logger.Error(err))
		return fmt.Errorf("%w: %w", gate.ErrStoreUnavailable, err)
	}
	metrics.RecordProfileOperation("save", metrics.ResultOK)
	return nil
}

// Catalog returns every catalog entry.
func (s *Service) Catalog() []model.Entry {
	_, _, cat, err := s.components()
	if err != nil {
		return nil
	}
	return cat.Entries()
}

// Ready pings the store.
func (s *Service) Ready(ctx context.Context) error {
	_, store, _, err := s.components()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"backend":     s.backend,
		"cooldown_ms": s.cooldown.Milliseconds(),
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["uptime_seconds"] = int64(s.clock.Now().Sub(s.startedAt).Seconds())
	stats["catalog_entries"] = s.catalog.Len()
	if n, err := s.store.Count(ctx); err == nil {
		stats["tracked_identities"] = n
		metrics.UpdateTrackedIdentities(n)
	} else {
		stats["store_error"] = err.Error()
	}
	return stats
}
