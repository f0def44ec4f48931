package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the authentication subsystem. Handlers map these
// to HTTP statuses; everything that does not match is treated as
// ErrInternal and surfaced generically.
var (
	// ErrValidation indicates malformed or missing user input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a username or email uniqueness violation.
	ErrConflict = errors.New("resource already exists")

	// ErrAuthentication indicates bad credentials on a login or
	// password change attempt.
	ErrAuthentication = errors.New("invalid credentials")

	// ErrUnauthenticated indicates a missing, invalid, or expired
	// token on a protected route.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrFederation indicates an identity-provider assertion that
	// failed verification.
	ErrFederation = errors.New("identity verification failed")

	// ErrNotFound indicates a referenced user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal indicates an unexpected storage or signing failure.
	ErrInternal = errors.New("internal error")
)

// ValidationError carries field-level violations. It unwraps to
// ErrValidation so callers can match the whole class with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d invalid field(s)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
