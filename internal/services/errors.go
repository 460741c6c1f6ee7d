package services

import "errors"

// Sentinel errors for the service layer. Handlers translate these into HTTP
// status codes with errors.Is; services wrap them with %w to add detail.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a uniqueness violation on registration.
	ErrConflict = errors.New("already in use")

	// ErrInvalidCredentials is returned on any failed login attempt. It is
	// deliberately generic: callers must not learn whether the username or
	// the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAuth marks a missing or invalid session.
	ErrAuth = errors.New("authentication required")

	// ErrOwnership marks an attempt to act on another user's task.
	ErrOwnership = errors.New("task belongs to another user")

	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
)
