package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when no valid credential is presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the credential lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a resource with the same key already exists.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
