// Package gate is the spin authorization gate: a per-identity permit that
// may be granted at most once per cooldown window.
package gate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/gamespin/pkg/clock"
	"github.com/okian/gamespin/pkg/logger"
	"github.com/okian/gamespin/pkg/metrics"
)

// Store persists one authorization record per identity.
type Store interface {
	// TryAuthorize atomically grants when the identity has no record or its
	// last grant is at least cooldown before now, storing now as the new
	// grant time. On denial it returns the unchanged last grant time.
	TryAuthorize(ctx context.Context, identity string, now time.Time, cooldown time.Duration) (last time.Time, granted bool, err error)
	// LastAuthorized reads the last grant time without modifying it.
	LastAuthorized(ctx context.Context, identity string) (last time.Time, found bool, err error)
}

// Decision is the result of an authorization attempt.
type Decision struct {
	Granted      bool
	Remaining    time.Duration
	SpinID       string
	AuthorizedAt time.Time
}

// Status answers what Authorize would decide right now.
type Status struct {
	CanSpin          bool
	Remaining        time.Duration
	LastAuthorizedAt time.Time
}

// Gate decides whether an identity may start a spin.
type Gate struct {
	store          Store
	clock          clock.Clock
	cooldown       time.Duration
	maxIdentityLen int
	log            logger.Logger
	newID          func() string
}

// New creates a gate over store.
func New(store Store, opts ...Option) (*Gate, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	g := &Gate{
		store:          store,
		clock:          clock.New(),
		cooldown:       DefaultCooldown,
		maxIdentityLen: DefaultMaxIdentityLen,
		log:            logger.Nop(),
		newID:          newSpinID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Cooldown returns the configured window.
func (g *Gate) Cooldown() time.Duration { return g.cooldown }

// NormalizeIdentity trims surrounding space and validates length.
func (g *Gate) NormalizeIdentity(identity string) (string, error) {
	id := strings.TrimSpace(identity)
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	if utf8.RuneCountInString(id) > g.maxIdentityLen {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidIdentity, g.maxIdentityLen)
	}
	return id, nil
}

// Authorize consumes a permit for identity if its cooldown has elapsed.
// A denial is not an error; Decision.Remaining tells how long to wait.
func (g *Gate) Authorize(ctx context.Context, identity string) (Decision, error) {
	id, err := g.NormalizeIdentity(identity)
	if err != nil {
		metrics.RecordAuthorization(metrics.ResultInvalid, 0)
		return Decision{}, err
	}

	now := g.clock.Now()
	started := time.Now()
	last, granted, err := g.store.TryAuthorize(ctx, id, now, g.cooldown)
	latency := float64(time.Since(started).Microseconds()) / 1000
	if err != nil {
		metrics.RecordAuthorization(metrics.ResultUnavailable, latency)
		metrics.RecordStoreError("authorize")
		g.log.Error(ctx, "authorize failed", logger.String("identity", id), logger.Error(err))
		return Decision{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !granted {
		metrics.RecordAuthorization(metrics.ResultDenied, latency)
		remaining := g.remaining(now, last)
		g.log.Debug(ctx, "authorize denied",
			logger.String("identity", id),
			logger.Duration("remaining", remaining))
		return Decision{Remaining: remaining}, nil
	}

	metrics.RecordAuthorization(metrics.ResultGranted, latency)
	d := Decision{Granted: true, SpinID: g.newID(), AuthorizedAt: now}
	g.log.Info(ctx, "spin authorized",
		logger.String("identity", id),
		logger.String("spin_id", d.SpinID))
	return d, nil
}

// CheckStatus reports whether Authorize would grant now. It never writes.
func (g *Gate) CheckStatus(ctx context.Context, identity string) (Status, error) {
	id, err := g.NormalizeIdentity(identity)
	if err != nil {
		metrics.RecordStatusCheck(metrics.ResultInvalid)
		return Status{}, err
	}

	last, found, err := g.store.LastAuthorized(ctx, id)
	if err != nil {
		metrics.RecordStatusCheck(metrics.ResultUnavailable)
		metrics.RecordStoreError("status")
		g.log.Error(ctx, "status check failed", logger.String("identity", id), logger.Error(err))
		return Status{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !found {
		metrics.RecordStatusCheck(metrics.ResultGranted)
		return Status{CanSpin: true}, nil
	}

	now := g.clock.Now()
	if now.Sub(last) >= g.cooldown {
		metrics.RecordStatusCheck(metrics.ResultGranted)
		return Status{CanSpin: true, LastAuthorizedAt: last}, nil
	}
	metrics.RecordStatusCheck(metrics.ResultDenied)
	return Status{Remaining: g.remaining(now, last), LastAuthorizedAt: last}, nil
}

// remaining is the wait until last+cooldown, capped to [0, cooldown] so a
// record written by a clock that runs ahead never reports more than one
// full window.
func (g *Gate) remaining(now, last time.Time) time.Duration {
	return clock.Clamp(g.cooldown-now.Sub(last), 0, g.cooldown)
}

// Millis rounds d up to whole milliseconds so that a positive wait is
// never reported as zero.
func Millis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int64(ms)
}
