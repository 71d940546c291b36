// Package repository holds the authorization and profile stores.
package repository

import (
	"context"
	"time"

	"github.com/okian/gamespin/internal/domain/model"
)

// AuthorizationStore keeps one authorization record per identity. Its
// method set matches gate.Store.
type AuthorizationStore interface {
	// TryAuthorize grants when no record exists or the last grant is at
	// least cooldown before now. The check and the write happen as one
	// atomic step per identity.
	TryAuthorize(ctx context.Context, identity string, now time.Time, cooldown time.Duration) (last time.Time, granted bool, err error)
	// LastAuthorized reads the record without changing it.
	LastAuthorized(ctx context.Context, identity string) (last time.Time, found bool, err error)
}

// ProfileStore loads and replaces per-identity profiles.
type ProfileStore interface {
	// LoadProfile returns ErrNotFound for unknown identities.
	LoadProfile(ctx context.Context, identity string) (model.Profile, error)
	// SaveProfile replaces the stored profile as a whole.
	SaveProfile(ctx context.Context, p model.Profile) error
}

// Store is everything the gate server needs from persistence.
type Store interface {
	AuthorizationStore
	ProfileStore

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	// Count returns the number of identities with an authorization record.
	Count(ctx context.Context) (int, error)
	Close() error
}
