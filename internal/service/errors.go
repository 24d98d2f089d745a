package service

import (
	"errors"
	"fmt"
	"time"
)

// Auth failures form a closed set of sentinel errors so handlers can map
// them to HTTP statuses with errors.Is instead of matching message text.
var (
	ErrUsernameExists = errors.New("username already taken")
	ErrEmailExists    = errors.New("email already registered")

	// ErrInvalidCredentials deliberately covers unknown user, wrong
	// password and inactive account alike, so responses cannot be used
	// for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RateLimitError signals too many authentication attempts. Carries the
// window metadata handlers expose through X-RateLimit headers.
type RateLimitError struct {
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %d seconds", int(e.RetryAfter.Seconds()))
}
