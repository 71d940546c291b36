package motion

import (
	"math"
	"time"
)

// Plan is the immutable description of one spin, fixed when it starts.
type Plan struct {
	Start        time.Time
	StartOffset  float64
	TargetOffset float64
	Distance     float64
	Curve        Curve

	landing float64
}

// NewPlan clamps both offsets to b and derives the distance to travel.
// The distance is floored at zero so a plan never travels backwards.
func NewPlan(start time.Time, startOffset, targetOffset float64, b Bounds, c Curve) Plan {
	from := b.Clamp(startOffset)
	to := b.Clamp(targetOffset)
	p := Plan{
		Start:        start,
		StartOffset:  from,
		TargetOffset: to,
		Distance:     math.Max(0, to-from),
		Curve:        c,
		landing:      from,
	}
	if to >= from {
		p.landing = to
	}
	return p
}

// Duration is the fixed time the plan takes to land.
func (p Plan) Duration() time.Duration {
	return p.Curve.Total()
}

// Elapsed is the time since the plan started, never negative.
func (p Plan) Elapsed(now time.Time) time.Duration {
	d := now.Sub(p.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Landing is the offset the plan comes to rest at.
func (p Plan) Landing() float64 {
	return p.landing
}

// PositionAt evaluates the plan at elapsed and clamps the result to b.
// At or beyond Duration it returns the landing offset exactly.
func (p Plan) PositionAt(elapsed time.Duration, b Bounds) float64 {
	if elapsed >= p.Duration() {
		return b.Clamp(p.landing)
	}
	pos := p.StartOffset + p.Distance*p.Curve.Progress(elapsed)
	if pos > p.landing {
		pos = p.landing
	}
	return b.Clamp(pos)
}
