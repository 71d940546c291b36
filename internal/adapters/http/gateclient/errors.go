package gateclient

import "errors"

// Sentinel kinds for gate API failures.
var (
	// ErrUnavailable means the gate answered 503: the store is down and
	// no authorization decision was made.
	ErrUnavailable = errors.New("gate unavailable")
	// ErrNetwork means no answer arrived at all.
	ErrNetwork = errors.New("gate unreachable")
	// ErrValidation means the gate rejected the request as malformed.
	ErrValidation = errors.New("request rejected")
	// ErrServer means the gate or a proxy in front of it failed with a 5xx
	// other than 503. The request may or may not have taken effect.
	ErrServer = errors.New("gate server error")
	// ErrUnexpected covers any other status or an unreadable body.
	ErrUnexpected = errors.New("unexpected gate response")
)
