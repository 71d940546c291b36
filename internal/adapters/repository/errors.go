package repository

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound       = errors.New("profile not found")
	ErrClosed         = errors.New("store closed")
	ErrEmptyIdentity  = errors.New("empty identity")
	ErrUnknownBackend = errors.New("unknown store backend")
)
