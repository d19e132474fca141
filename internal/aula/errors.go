package aula

import "errors"

// Error taxonomy for platform access. Callers branch with errors.Is; the
// HTTP layer maps each to a response code.
var (
	// ErrAuthentication means the platform rejected the configured
	// credentials. Fatal — never retried automatically.
	ErrAuthentication = errors.New("authentication rejected by platform")

	// ErrSessionExpired means a previously valid session was invalidated
	// mid-flight and one transparent re-login also failed to satisfy the
	// platform.
	ErrSessionExpired = errors.New("platform session expired")

	// ErrTransport covers network failures, timeouts and unreadable
	// responses. Surfaced immediately; the caller may retry.
	ErrTransport = errors.New("platform transport failure")

	// ErrInvalidRange is returned before any network activity when a
	// caller-supplied date range or day count violates its contract.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrNotFound is returned when a requested id is absent from the
	// current data set. Not fatal to the session.
	ErrNotFound = errors.New("not found")
)
