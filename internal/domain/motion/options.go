package motion

import (
	"math/rand/v2"
	"time"
)

// Default frame-handling constants.
const (
	DefaultTickCap       = 8
	DefaultDeltaClamp    = 50 * time.Millisecond
	DefaultJitterAmp     = 0.8
	DefaultJitterWindow  = 120 * time.Millisecond
	defaultVelocityFloor = 1e-9
)

// Option configures a Reel.
type Option func(*Reel)

// WithCurve replaces the default curve. Invalid curves are ignored.
func WithCurve(c Curve) Option {
	return func(r *Reel) {
		if c.Validate() == nil {
			r.curve = c
		}
	}
}

// WithDuration rescales the default curve to total.
func WithDuration(total time.Duration) Option {
	return func(r *Reel) {
		if total > 0 {
			r.curve = NewCurve(total)
		}
	}
}

// WithTickCap limits the number of tick events a single frame may emit.
func WithTickCap(n int) Option {
	return func(r *Reel) {
		if n > 0 {
			r.tickCap = n
		}
	}
}

// WithDeltaClamp bounds the frame delta used for velocity.
func WithDeltaClamp(d time.Duration) Option {
	return func(r *Reel) {
		if d > 0 {
			r.deltaClamp = d
		}
	}
}

// WithJitter sets the start jitter amplitude and window. An amplitude of
// zero disables jitter.
func WithJitter(amp float64, window time.Duration) Option {
	return func(r *Reel) {
		if amp >= 0 {
			r.jitterAmp = amp
		}
		if window >= 0 {
			r.jitterWindow = window
		}
	}
}

// WithRandom sets the source used for jitter. It must return values in [0,1).
func WithRandom(f func() float64) Option {
	return func(r *Reel) {
		if f != nil {
			r.random = f
		}
	}
}

// WithListener registers the receiver of tick and completion events.
func WithListener(l Listener) Option {
	return func(r *Reel) {
		if l != nil {
			r.listener = l
		}
	}
}

func defaultRandom() float64 { return rand.Float64() }
