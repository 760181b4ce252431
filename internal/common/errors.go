// Package common defines shared constants and sentinel errors used across
// all layers of DataVault. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository/backend-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorValidation marks a missing or invalid required field.
	ErrorValidation = errors.New("validation error")

	// Auth errors (missing, invalid, or expired credentials).
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorUnavailable marks a backend that cannot be reached. It is
	// consumed by the selector's fallback chain and must never reach an
	// end caller.
	ErrorUnavailable = errors.New("backend unavailable")

	// ErrorInternal covers unexpected backend faults.
	ErrorInternal = errors.New("internal error")
)
