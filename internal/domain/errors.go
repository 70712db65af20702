package domain

import (
	"errors"
	"fmt"
)

// The ledger rejects a mutation for one of three reasons: the input was
// malformed, the current ledger state forbids it, or a referenced entity
// does not exist. Every rejection aborts the enclosing transaction, so a
// failed call leaves the ledger untouched.
var (
	ErrInvalid  = errors.New("invalid input")
	ErrConflict = errors.New("state conflict")
	ErrNotFound = errors.New("not found")
)

// Invalidf builds a validation error.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Conflictf builds a state-conflict error.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func IsInvalid(err error) bool  { return errors.Is(err, ErrInvalid) }
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
