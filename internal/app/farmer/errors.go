package farmer

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountLocked means the provider put the account behind a verification wall.
	ErrAccountLocked = errors.New("account has been locked")

	// ErrAccountSuspended means the account is banned from the rewards program.
	ErrAccountSuspended = errors.New("account has been suspended")

	// ErrRegionUnavailable means the rewards program does not serve this region.
	// Every account behind the same network would hit it, so the run aborts.
	ErrRegionUnavailable = errors.New("rewards program is not available in this region")

	// ErrUnusualActivity means the provider flagged the automation itself.
	// Continuing with more accounts only makes it worse, so the run aborts.
	ErrUnusualActivity = errors.New("unusual activity detected")

	// ErrUnhandledLogin covers login pages we do not recognize.
	ErrUnhandledLogin = errors.New("unknown error during login")

	// ErrDashboardUnavailable means the dashboard blob never appeared despite retries.
	ErrDashboardUnavailable = errors.New("could not locate dashboard")

	errGamingCardNotFound  = errors.New("gaming card not found")
	errGamingCardNotActive = errors.New("gaming card is not active")
)

// LoginError carries which surface failed so the persisted status can
// distinguish desktop from mobile failures.
type LoginError struct {
	Mobile bool
	Reason string
}

func (e *LoginError) Error() string {
	surface := "pc"
	if e.Mobile {
		surface = "mobile"
	}
	return fmt.Sprintf("%s login failed: %s", surface, e.Reason)
}
