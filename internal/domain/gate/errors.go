package gate

import "errors"

var (
	// ErrInvalidIdentity is returned for empty or oversized identities.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrStoreUnavailable wraps every failure of the authorization store.
	ErrStoreUnavailable = errors.New("authorization store unavailable")
	// ErrNilStore is returned by New when no store is given.
	ErrNilStore = errors.New("nil authorization store")
)
