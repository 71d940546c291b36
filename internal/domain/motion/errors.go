package motion

import "errors"

// Sentinel errors for reel operations.
var (
	ErrAlreadyRunning = errors.New("reel is already spinning")
	ErrEmptyReel      = errors.New("reel has no items")
	ErrInvalidTarget  = errors.New("target index out of range")
	ErrInvalidCurve   = errors.New("invalid motion curve")
	ErrInvalidLayout  = errors.New("invalid reel geometry")
	ErrEmptyCatalog   = errors.New("no entries to build a reel from")
)
