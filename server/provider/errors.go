package provider

import "errors"

var (
	// ErrMissingAPIKey is returned when a hosted backend has no credentials.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrNilBackend is returned when a manager is built without a backend.
	ErrNilBackend = errors.New("backend is required")
)
