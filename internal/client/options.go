package client

import (
	"math/rand/v2"
	"time"

	"github.com/okian/gamespin/internal/adapters/mq/queue"
	"github.com/okian/gamespin/internal/domain/motion"
	"github.com/okian/gamespin/pkg/clock"
	"github.com/okian/gamespin/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithClock sets the time source for frames and the advisory cooldown.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRand sets the random source for winner selection and reel layout.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithQueue routes won-collection snapshots to q for background saving.
// Without a queue snapshots are saved synchronously by Flush.
func WithQueue(q queue.Queue) Option {
	return func(s *Session) {
		s.queue = q
	}
}

// WithAdvisoryCooldown sets the window assumed after a grant while the
// gate cannot be asked.
func WithAdvisoryCooldown(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.advisoryCooldown = d
		}
	}
}

// WithReelOptions passes options through to the motion reel.
func WithReelOptions(opts ...motion.Option) Option {
	return func(s *Session) {
		s.reelOpts = append(s.reelOpts, opts...)
	}
}

// WithListener receives reel ticks and completions after the session has
// recorded them.
func WithListener(l motion.Listener) Option {
	return func(s *Session) {
		if l != nil {
			s.listener = l
		}
	}
}
