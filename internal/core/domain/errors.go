package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the core wraps exactly one of
// these so the transport layer can pick a status code with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("dependency unavailable")
)

// kindError is a sentinel that belongs to one of the categories above while
// keeping its own user-facing message.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// Kind returns the category the error belongs to.
func (e *kindError) Kind() error { return e.kind }

func newKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidCredentials = newKind(ErrUnauthorized, "invalid credentials")
	ErrSessionInvalid     = newKind(ErrUnauthorized, "invalid or expired session")
	ErrSessionNotFound    = newKind(ErrUnauthorized, "session not found")

	ErrUserNotFound    = newKind(ErrNotFound, "user not found")
	ErrVillageNotFound = newKind(ErrNotFound, "village not found")
	ErrOutageNotFound  = newKind(ErrNotFound, "outage not found")

	ErrMobileTaken     = newKind(ErrConflict, "mobile number already registered")
	ErrVillageExists   = newKind(ErrConflict, "village already exists")
	ErrOutageResolved  = newKind(ErrConflict, "outage already resolved")
	ErrVersionConflict = newKind(ErrConflict, "outage was modified concurrently")

	ErrEmployeeOnly   = newKind(ErrForbidden, "only employees can perform this action")
	ErrNotOwnAccount  = newKind(ErrForbidden, "you can only manage your own account")
	ErrSignupDisabled = newKind(ErrForbidden, "employee accounts cannot be self-registered")
)

// Invalid builds a validation error whose message is shown to the caller
// verbatim, e.g. Invalid("duration_hours must be greater than 0").
func Invalid(format string, args ...any) error {
	return newKind(ErrValidation, fmt.Sprintf(format, args...))
}

// Unavailable wraps a downstream failure so it classifies as ErrUnavailable
// without hiding the cause from logs.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, cause)
}

// PublicMessage returns the message a caller may see for err, and false when
// err is not a categorised domain error.
func PublicMessage(err error) (string, bool) {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg, true
	}
	return "", false
}
