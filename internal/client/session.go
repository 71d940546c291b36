// Package client drives one identity's spins: it asks the gate for
// permission, runs the reel, and keeps the won collection persisted.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/gamespin/internal/adapters/http/gateclient"
	"github.com/okian/gamespin/internal/adapters/mq/queue"
	"github.com/okian/gamespin/internal/domain/gate"
	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/internal/domain/motion"
	"github.com/okian/gamespin/pkg/clock"
	"github.com/okian/gamespin/pkg/logger"
	"github.com/okian/gamespin/pkg/metrics"
)

// Gate is the remote authorization and profile API.
type Gate interface {
	Authorize(ctx context.Context, identity string) (gateclient.Grant, error)
	Status(ctx context.Context, identity string) (gateclient.Status, error)
	LoadProfile(ctx context.Context, identity string) (model.Profile, bool, error)
	SaveProfile(ctx context.Context, p model.Profile) error
}

// Outcome is what a spin request resulted in.
type Outcome int

// Spin outcomes.
const (
	// OutcomeStarted means the gate granted the spin and the reel runs.
	OutcomeStarted Outcome = iota
	// OutcomeCooldown means the gate refused; Remaining is authoritative.
	OutcomeCooldown
	// OutcomeUnavailable means the gate's store is down. Remaining is a
	// local estimate and no spin was started.
	OutcomeUnavailable
	// OutcomeNetwork means the request got no answer and the follow-up
	// status query did not either.
	OutcomeNetwork
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Eligibility is the session's view of whether a spin may be requested.
type Eligibility struct {
	CanSpin   bool
	Remaining time.Duration
	// Authoritative is false when the answer is a local estimate made
	// while the gate was unavailable.
	Authoritative bool
}

// Result describes one Spin call.
type Result struct {
	Outcome   Outcome
	Remaining time.Duration
	SpinID    string
	Winner    model.Entry
}

// Session owns one identity's reel, profile and cooldown view.
type Session struct {
	identity string
	gate     Gate
	entries  []model.Entry
	reel     *motion.Reel

	clock            clock.Clock
	rng              *rand.Rand
	log              logger.Logger
	queue            queue.Queue
	advisoryCooldown time.Duration
	reelOpts         []motion.Option
	listener         motion.Listener

	mu                sync.Mutex
	profile           model.Profile
	version           uint64
	queuedVersion     uint64
	persistedVersion  uint64
	advisoryUntil     time.Time
	needsRevalidation bool
	spinStartedAt     time.Time
}

// New creates a session for identity over a catalog of entries.
func New(identity string, g Gate, entries []model.Entry, geom motion.Geometry, opts ...Option) (*Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrNoIdentity
	}
	if g == nil {
		return nil, ErrNilGate
	}
	if len(entries) == 0 {
		return nil, motion.ErrEmptyCatalog
	}

	s := &Session{
		identity:         identity,
		gate:             g,
		entries:          append([]model.Entry(nil), entries...),
		clock:            clock.New(),
		rng:              rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // outcome fairness is not a goal
		log:              logger.Nop(),
		advisoryCooldown: gate.DefaultCooldown,
		listener:         nopListener{},
		profile:          model.Profile{Username: identity, Won: model.WonCollection{}},
	}
	for _, opt := range opts {
		opt(s)
	}

	reelOpts := append(append([]motion.Option(nil), s.reelOpts...), motion.WithListener(reelListener{s}))
	reel, err := motion.NewReel(geom, reelOpts...)
	if err != nil {
		return nil, err
	}
	s.reel = reel
	return s, nil
}

// Identity returns the trimmed identity the session acts for.
func (s *Session) Identity() string { return s.identity }

// Reel exposes the reel for rendering.
func (s *Session) Reel() *motion.Reel { return s.reel }

// Profile returns a copy of the local profile.
func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Clone()
}

// Load replaces the local profile with the stored one. A failure leaves
// the empty local profile in place.
func (s *Session) Load(ctx context.Context) error {
	p, found, err := s.gate.LoadProfile(ctx, s.identity)
	if err != nil {
		s.log.Warn(ctx, "profile load failed; starting empty", logger.Error(err))
		return fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p.Username = s.identity
	p.Won = p.Won.Normalize()
	s.profile = p
	return nil
}

// Status asks the gate whether a spin may be requested. When the gate's
// store is down the answer is a local estimate and the next call or spin
// will re-check with the gate.
func (s *Session) Status(ctx context.Context) (Eligibility, error) {
	st, err := s.gate.Status(ctx, s.identity)
	now := s.clock.Now()

	switch {
	case err == nil:
		s.mu.Lock()
		s.needsRevalidation = false
		s.advisoryUntil = now.Add(st.Remaining)
		s.mu.Unlock()
		return Eligibility{CanSpin: st.CanSpin, Remaining: st.Remaining, Authoritative: true}, nil
	case errors.Is(err, gateclient.ErrUnavailable):
		return s.advisory(now), nil
	default:
		return Eligibility{}, err
	}
}

// advisory answers from the last known cooldown and flags the session for
// revalidation.
func (s *Session) advisory(now time.Time) Eligibility {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.needsRevalidation = true
	remaining := s.advisoryUntil.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Eligibility{CanSpin: remaining == 0, Remaining: remaining}
}

// NeedsRevalidation reports whether the last answer was a local estimate.
func (s *Session) NeedsRevalidation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsRevalidation
}

// Spin requests authorization and, when granted, starts the reel on a
// freshly chosen winner. The reel is never started without a grant.
func (s *Session) Spin(ctx context.Context) (Result, error) {
	if s.reel.Running() {
		return Result{}, ErrSpinRunning
	}

	if s.NeedsRevalidation() {
		el, err := s.Status(ctx)
		if err == nil && !el.CanSpin {
			outcome := OutcomeCooldown
			if !el.Authoritative {
				outcome = OutcomeUnavailable
			}
			return Result{Outcome: outcome, Remaining: el.Remaining}, nil
		}
	}

	grant, err := s.gate.Authorize(ctx, s.identity)
	switch {
	case err == nil:
	case errors.Is(err, gateclient.ErrUnavailable):
		el := s.advisory(s.clock.Now())
		s.log.Warn(ctx, "gate store unavailable; spin not started", logger.Duration("advisory_remaining", el.Remaining))
		return Result{Outcome: OutcomeUnavailable, Remaining: el.Remaining}, nil
	case errors.Is(err, gateclient.ErrNetwork), errors.Is(err, gateclient.ErrServer):
		return s.afterLostAuthorize(ctx, err), nil
	default:
		return Result{}, err
	}

	now := s.clock.Now()
	if grant.Outcome == gateclient.OutcomeCooldown {
		s.mu.Lock()
		s.advisoryUntil = now.Add(grant.Remaining)
		s.needsRevalidation = false
		s.mu.Unlock()
		return Result{Outcome: OutcomeCooldown, Remaining: grant.Remaining}, nil
	}

	winner, err := motion.PickWinner(s.entries, s.rng)
	if err != nil {
		return Result{}, err
	}
	layout, err := motion.BuildLayout(s.entries, winner, s.rng)
	if err != nil {
		return Result{}, err
	}
	if err := s.reel.Start(now, layout.Items, layout.TargetIndex); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	s.advisoryUntil = now.Add(s.advisoryCooldown)
	s.needsRevalidation = false
	s.spinStartedAt = now
	s.mu.Unlock()

	s.log.Info(ctx, "spin started",
		logger.String("spin_id", grant.SpinID),
		logger.String("winner", winner.ID),
	)
	return Result{Outcome: OutcomeStarted, SpinID: grant.SpinID, Winner: winner}, nil
}

// afterLostAuthorize re-queries status after an authorization request
// that got no answer. The request may have been granted server side, so
// the reel is not started either way.
func (s *Session) afterLostAuthorize(ctx context.Context, cause error) Result {
	s.log.Warn(ctx, "authorization got no answer; re-checking status", logger.Error(cause))

	el, err := s.Status(ctx)
	if err != nil {
		return Result{Outcome: OutcomeNetwork}
	}
	if !el.Authoritative {
		return Result{Outcome: OutcomeUnavailable, Remaining: el.Remaining}
	}
	if !el.CanSpin {
		return Result{Outcome: OutcomeCooldown, Remaining: el.Remaining}
	}
	return Result{Outcome: OutcomeNetwork}
}

// Frame advances the reel to the current time.
func (s *Session) Frame() motion.Frame {
	return s.reel.Frame(s.clock.Now())
}

// Running reports whether a spin is animating.
func (s *Session) Running() bool { return s.reel.Running() }

// complete records a landed winner and queues the profile for saving.
func (s *Session) complete(winner model.Entry) {
	s.mu.Lock()
	added := s.profile.Won.Add(winner.ID)
	if added {
		s.version++
	}
	overrun := s.clock.Now().Sub(s.spinStartedAt) - s.reel.Plan().Duration()
	s.mu.Unlock()

	metrics.RecordSpinCompleted(float64(overrun.Milliseconds()))
	if added {
		s.Save(context.Background())
	}
}

// Save queues the current profile when it has changes that are neither
// queued nor persisted. It reports whether a snapshot was handed off.
func (s *Session) Save(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version == s.queuedVersion || s.version == s.persistedVersion || s.queue == nil {
		return false
	}
	// Enqueue under the lock so snapshots reach the queue in version order.
	if !s.queue.Enqueue(ctx, queue.Snapshot{Profile: s.profile.Clone(), Version: s.version}) {
		s.log.Warn(ctx, "profile snapshot not queued", logger.String("identity", s.identity))
		return false
	}
	s.queuedVersion = s.version
	return true
}

// Saved records that a queued snapshot reached the gate.
func (s *Session) Saved(snap queue.Snapshot) { //nolint:gocritic // hugeParam: snapshots are values
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Version > s.persistedVersion {
		s.persistedVersion = snap.Version
	}
}

// SaveFailed records that a queued snapshot was given up on, so the next
// Save or Flush sends the profile again.
func (s *Session) SaveFailed(snap queue.Snapshot, err error) { //nolint:gocritic // hugeParam: snapshots are values
	s.mu.Lock()
	if snap.Version == s.queuedVersion {
		s.queuedVersion = s.persistedVersion
	}
	s.mu.Unlock()
	s.log.Warn(context.Background(), "profile snapshot not persisted",
		logger.Int64("version", int64(snap.Version)), logger.Error(err))
}

// Dirty reports whether the profile has changes the gate has not
// acknowledged.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.persistedVersion
}

// Flush writes the current profile directly to the gate unless the gate
// already acknowledged this version.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	v := s.version
	if v == s.persistedVersion {
		s.mu.Unlock()
		return nil
	}
	snap := s.profile.Clone()
	s.mu.Unlock()

	if err := s.gate.SaveProfile(ctx, snap); err != nil {
		return fmt.Errorf("flush profile: %w", err)
	}
	s.mu.Lock()
	if v > s.persistedVersion {
		s.persistedVersion = v
	}
	if v > s.queuedVersion {
		s.queuedVersion = v
	}
	s.mu.Unlock()
	return nil
}

// SetPreferences replaces the cosmetic preferences and marks the profile
// for saving.
func (s *Session) SetPreferences(p model.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.Preferences = p
	s.version++
}

type reelListener struct{ s *Session }

func (l reelListener) Tick() {
	metrics.RecordSpinTicks(1)
	l.s.listener.Tick()
}

func (l reelListener) Complete(winner model.Entry) {
	l.s.complete(winner)
	l.s.listener.Complete(winner)
}

type nopListener struct{}

func (nopListener) Tick()                {}
func (nopListener) Complete(model.Entry) {}
