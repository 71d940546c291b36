package gate

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/gamespin/pkg/clock"
	"github.com/okian/gamespin/pkg/logger"
)

// Defaults.
const (
	DefaultCooldown       = 10 * time.Minute
	DefaultMaxIdentityLen = 50
)

// Option configures a Gate.
type Option func(*Gate)

// WithCooldown sets the window between two grants for one identity.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(g *Gate) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithMaxIdentityLen bounds identity length in characters.
func WithMaxIdentityLen(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.maxIdentityLen = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithIDGenerator replaces the spin ID generator.
func WithIDGenerator(f func() string) Option {
	return func(g *Gate) {
		if f != nil {
			g.newID = f
		}
	}
}

func newSpinID() string { return uuid.NewString() }
