package client

import "errors"

// Sentinel errors returned by Session.
var (
	ErrNoIdentity  = errors.New("identity is required")
	ErrNilGate     = errors.New("gate is nil")
	ErrSpinRunning = errors.New("a spin is already running")
)
