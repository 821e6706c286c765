package pass

import "errors"

var (
	// ErrNotFound covers both truly missing resources and resources the
	// caller is not allowed to see; read paths never reveal which.
	ErrNotFound = errors.New("pass: not found")

	ErrForbidden         = errors.New("pass: forbidden")
	ErrInvalidState      = errors.New("pass: invalid request state")
	ErrMissingReason     = errors.New("pass: reason is required")
	ErrInvalidInput      = errors.New("pass: invalid input")
	ErrBlacklisted       = errors.New("pass: visitor is blacklisted")
	ErrForbiddenDuration = errors.New("pass: role may not create requests of this duration")
	ErrInvalidDateRange  = errors.New("pass: invalid date range")
	ErrRateLimited       = errors.New("pass: short-term request limit reached for visitor")
	ErrUnknownCheckpoint = errors.New("pass: unknown checkpoint")
)
