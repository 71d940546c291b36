package motion

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/clock"
)

// Phase is the reel's lifecycle state.
type Phase int

// Reel phases.
const (
	Idle Phase = iota
	Running
)

func (p Phase) String() string {
	if p == Running {
		return "running"
	}
	return "idle"
}

// Listener receives reel events. Both methods are called synchronously
// from Frame and must not call back into the reel.
type Listener interface {
	Tick()
	Complete(winner model.Entry)
}

type nopListener struct{}

func (nopListener) Tick()                {}
func (nopListener) Complete(model.Entry) {}

// Frame is what one evaluation of the reel produced.
type Frame struct {
	Offset   float64
	Velocity float64
	Ticks    int
	Elapsed  time.Duration
	Phase    Phase
	Landed   bool
	Winner   model.Entry
}

// Reel turns a spin plan into per-frame offsets. A reel is Idle until
// Start, Running until the frame that reaches the plan duration, then Idle
// again. Completion is reported exactly once per Start.
type Reel struct {
	mu sync.Mutex

	geom         Geometry
	curve        Curve
	tickCap      int
	deltaClamp   time.Duration
	jitterAmp    float64
	jitterWindow time.Duration
	random       func() float64
	listener     Listener

	items     []model.Entry
	target    int
	phase     Phase
	plan      Plan
	offset    float64
	velocity  float64
	lastFrame time.Time
}

// NewReel creates an idle reel for the given geometry.
func NewReel(g Geometry, opts ...Option) (*Reel, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	r := &Reel{
		geom:         g,
		curve:        DefaultCurve(),
		tickCap:      DefaultTickCap,
		deltaClamp:   DefaultDeltaClamp,
		jitterAmp:    DefaultJitterAmp,
		jitterWindow: DefaultJitterWindow,
		random:       defaultRandom,
		listener:     nopListener{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start begins a spin that lands items[targetIndex] under the marker.
// The offset restarts at zero with a freshly laid out strip.
func (r *Reel) Start(now time.Time, items []model.Entry, targetIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == Running {
		return ErrAlreadyRunning
	}
	if len(items) == 0 {
		return ErrEmptyReel
	}
	if targetIndex < 0 || targetIndex >= len(items) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidTarget, targetIndex, len(items))
	}

	r.items = append(r.items[:0], items...)
	r.target = targetIndex
	r.offset = 0
	r.velocity = 0
	r.lastFrame = now
	r.plan = NewPlan(now, 0, r.geom.OffsetFor(targetIndex), r.bounds(), r.curve)
	r.phase = Running
	return nil
}

// Frame advances the reel to now and dispatches any events.
func (r *Reel) Frame(now time.Time) Frame {
	r.mu.Lock()
	f, ticks, done, winner := r.advance(now)
	listener := r.listener
	r.mu.Unlock()

	for i := 0; i < ticks; i++ {
		listener.Tick()
	}
	if done {
		listener.Complete(winner)
	}
	return f
}

func (r *Reel) advance(now time.Time) (f Frame, ticks int, done bool, winner model.Entry) {
	if r.phase != Running {
		return Frame{Offset: r.offset, Phase: r.phase}, 0, false, model.Entry{}
	}

	b := r.bounds()
	elapsed := r.plan.Elapsed(now)
	dt := clock.Clamp(now.Sub(r.lastFrame), 0, r.deltaClamp)
	r.lastFrame = now

	prev := r.offset
	landed := elapsed >= r.plan.Duration()
	next := r.plan.PositionAt(elapsed, b)
	if !landed && elapsed < r.jitterWindow && r.jitterAmp > 0 {
		next = b.Clamp(next + (r.random()-0.5)*r.jitterAmp)
	}
	r.offset = next

	switch {
	case landed:
		r.velocity = 0
	case dt > 0:
		r.velocity = (next - prev) / dt.Seconds()
	}
	if math.Abs(r.velocity) < defaultVelocityFloor {
		r.velocity = 0
	}

	ticks = crossings(prev, next, r.geom.ItemWidth, r.tickCap)

	f = Frame{
		Offset:   next,
		Velocity: r.velocity,
		Ticks:    ticks,
		Elapsed:  elapsed,
		Phase:    r.phase,
	}
	if landed {
		r.phase = Idle
		winner = r.items[r.target]
		f.Phase = Idle
		f.Landed = true
		f.Winner = winner
		done = true
	}
	return f, ticks, done, winner
}

// crossings counts item boundaries passed between two offsets, capped.
func crossings(prev, next, width float64, limit int) int {
	n := math.Abs(math.Floor(next/width) - math.Floor(prev/width))
	if n > float64(limit) {
		return limit
	}
	return int(n)
}

// Resize changes the viewport width. The current offset is re-clamped at
// once; the plan is not recomputed, later frames clamp against the new
// bounds.
func (r *Reel) Resize(viewportWidth float64) error {
	g := Geometry{ItemWidth: r.geom.ItemWidth, ViewportWidth: viewportWidth}
	if err := g.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.geom = g
	r.offset = r.bounds().Clamp(r.offset)
	return nil
}

func (r *Reel) bounds() Bounds {
	return NewBounds(len(r.items), r.geom)
}

// Bounds returns the valid offset range for the current strip.
func (r *Reel) Bounds() Bounds {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bounds()
}

// Offset returns the last computed offset.
func (r *Reel) Offset() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}

// Phase returns the lifecycle state.
func (r *Reel) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Running reports whether a spin is in progress.
func (r *Reel) Running() bool {
	return r.Phase() == Running
}

// Geometry returns the current geometry.
func (r *Reel) Geometry() Geometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geom
}

// Items returns a copy of the current strip.
func (r *Reel) Items() []model.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Entry(nil), r.items...)
}

// TargetIndex returns the index the current or last spin lands on.
func (r *Reel) TargetIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Plan returns the current or last spin plan.
func (r *Reel) Plan() Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plan
}
