package service

import "errors"

// Sentinel errors the handler layer maps onto HTTP statuses. Validation
// and conflict errors are wrapped with a caller-facing message via %w.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)
