package probe

import (
	"errors"
	"fmt"
)

// Verification failures.
var (
	ErrDoubleGrant  = errors.New("more than one authorization granted")
	ErrNoGrant      = errors.New("fresh identity was never granted")
	ErrZeroWait     = errors.New("denial without a remaining wait")
	ErrStatusFlip   = errors.New("status changed between read-only checks")
	ErrIncomplete   = errors.New("some requests got no decision")
	ErrUnverifiable = errors.New("no authoritative decision observed")
)

// Verify judges a report. fresh says the identity had never been
// authorized, in which case exactly one grant is required.
func (r Report) Verify(fresh bool) error {
	var errs []error
	if r.Granted > 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrDoubleGrant, r.Granted))
	}
	if fresh && r.Granted == 0 && r.Granted+r.Denied > 0 {
		errs = append(errs, ErrNoGrant)
	}
	if r.ZeroWait > 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrZeroWait, r.ZeroWait))
	}
	if r.StatusFlips > 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrStatusFlip, r.StatusFlips))
	}
	if r.Failed+r.Unavailable > 0 {
		errs = append(errs, fmt.Errorf("%w: %d failed, %d unavailable", ErrIncomplete, r.Failed, r.Unavailable))
	}
	if r.Granted+r.Denied == 0 {
		errs = append(errs, ErrUnverifiable)
	}
	return errors.Join(errs...)
}
