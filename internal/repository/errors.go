package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique index on username or
	// email rejects an insert or update
	ErrDuplicate = errors.New("user with this username or email already exists")
)
