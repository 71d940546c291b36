// Package motion implements the reel's deterministic, frame-rate-independent
// motion curve. Position is always a function of elapsed time since the spin
// started; it is never integrated frame over frame.
package motion

import (
	"fmt"
	"time"
)

// Default phase timing and distance allocation.
const (
	DefaultAccel       = 450 * time.Millisecond
	DefaultCoast       = 2950 * time.Millisecond
	DefaultDecel       = 2400 * time.Millisecond
	DefaultAccelWeight = 0.12
	DefaultCoastWeight = 0.58
)

// Curve is the piecewise distance-fraction function u(t). The accel phase
// is an ease-in cubic, the coast phase is linear and the decel phase is an
// ease-out quintic. Whatever is left of the distance after the accel and
// coast weights belongs to the decel phase.
type Curve struct {
	Accel time.Duration
	Coast time.Duration
	Decel time.Duration

	AccelWeight float64
	CoastWeight float64
}

// DefaultCurve returns the stock 5.8s curve.
func DefaultCurve() Curve {
	return Curve{
		Accel:       DefaultAccel,
		Coast:       DefaultCoast,
		Decel:       DefaultDecel,
		AccelWeight: DefaultAccelWeight,
		CoastWeight: DefaultCoastWeight,
	}
}

// NewCurve rescales the default phase time-shares to the given total.
// A non-positive total yields DefaultCurve.
func NewCurve(total time.Duration) Curve {
	c := DefaultCurve()
	if total <= 0 {
		return c
	}
	scale := float64(total) / float64(c.Total())
	c.Accel = time.Duration(float64(DefaultAccel) * scale)
	c.Coast = time.Duration(float64(DefaultCoast) * scale)
	c.Decel = total - c.Accel - c.Coast
	return c
}

// Total is the fixed duration of a spin.
func (c Curve) Total() time.Duration {
	return c.Accel + c.Coast + c.Decel
}

// DecelWeight is the distance share of the final phase.
func (c Curve) DecelWeight() float64 {
	return 1 - (c.AccelWeight + c.CoastWeight)
}

// Validate checks that every phase has a positive duration and that the
// weights form a partition of [0,1].
func (c Curve) Validate() error {
	if c.Accel <= 0 || c.Coast <= 0 || c.Decel <= 0 {
		return fmt.Errorf("%w: phase durations must be positive", ErrInvalidCurve)
	}
	if c.AccelWeight < 0 || c.CoastWeight < 0 || c.AccelWeight+c.CoastWeight > 1 {
		return fmt.Errorf("%w: weights must be non-negative and sum to at most 1", ErrInvalidCurve)
	}
	return nil
}

// Progress returns u(elapsed) in [0,1]. u(0) == 0 and u(Total()) == 1
// exactly, and u never decreases.
func (c Curve) Progress(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= c.Total() {
		return 1
	}

	a := c.AccelWeight
	ac := c.AccelWeight + c.CoastWeight

	switch {
	case elapsed <= c.Accel:
		return a * easeInCubic(ratio(elapsed, c.Accel))
	case elapsed <= c.Accel+c.Coast:
		return a + c.CoastWeight*ratio(elapsed-c.Accel, c.Coast)
	default:
		u := ac + (1-ac)*easeOutQuint(ratio(elapsed-c.Accel-c.Coast, c.Decel))
		if u > 1 {
			return 1
		}
		return u
	}
}

// AccelEnd is the fraction reached when the accel phase ends.
func (c Curve) AccelEnd() float64 { return c.AccelWeight }

// DecelStart is the fraction reached when the decel phase begins.
func (c Curve) DecelStart() float64 { return c.AccelWeight + c.CoastWeight }

func ratio(d, of time.Duration) float64 {
	p := float64(d) / float64(of)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func easeInCubic(t float64) float64 {
	return t * t * t
}

func easeOutQuint(t float64) float64 {
	q := 1 - t
	return 1 - q*q*q*q*q
}
