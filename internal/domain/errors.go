package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrMalformedToken  = errors.New("malformed token")
	ErrOutOfBounds     = errors.New("value out of bounds")
	ErrSessionExpired  = errors.New("session expired")
	ErrBackendFailure  = errors.New("backend failure")
	ErrAlreadyExecuted = errors.New("intent already executed")
	ErrBusy            = errors.New("previous action still in progress")
	ErrNotConfirmed    = errors.New("intent not confirmed")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockHeld        = errors.New("lock already held")
	ErrInvalidOrder    = errors.New("invalid order parameters")
	ErrSigningFailed   = errors.New("signing failed")
)

// Bound names which limit a numeric entry violated.
type Bound string

const (
	BoundMin Bound = "min"
	BoundMax Bound = "max"
	// BoundNaN marks input that did not parse as a number at all.
	BoundNaN Bound = "nan"
)

// OutOfBoundsError reports a free-text numeric entry outside its accepted
// range. It matches ErrOutOfBounds with errors.Is.
type OutOfBoundsError struct {
	Field string // "amount" or "percent"
	Bound Bound
	Limit float64
	Value float64
}

func (e *OutOfBoundsError) Error() string {
	switch e.Bound {
	case BoundNaN:
		return fmt.Sprintf("%s: not a number", e.Field)
	case BoundMin:
		return fmt.Sprintf("%s %.2f below minimum %.2f", e.Field, e.Value, e.Limit)
	default:
		return fmt.Sprintf("%s %.2f above maximum %.2f", e.Field, e.Value, e.Limit)
	}
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}
