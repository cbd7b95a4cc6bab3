package domain

import "errors"

// Sentinel errors shared across the service and transport layers.
// Transport code maps these to HTTP status codes and websocket close codes.
var (
	// ErrNotFound covers both missing records and records owned by another
	// user. The two cases are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a unique constraint is violated,
	// e.g. registering a taken username.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized is returned for bad credentials or invalid tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for malformed input, before any mutation.
	ErrValidation = errors.New("invalid input")
)
