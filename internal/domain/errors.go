package domain

import "errors"

// Sentinel errors shared across the core. Absence of a match is never an
// error; these cover genuinely exceptional conditions only.
var (
	// ErrNotFound signals an ID-based lookup found no record. Callers
	// degrade to an empty match set.
	ErrNotFound = errors.New("not found")

	// ErrValidation signals a malformed or missing required field.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration signals an unknown source category or a missing
	// policy table entry that has no documented fallback.
	ErrConfiguration = errors.New("invalid configuration")
)
