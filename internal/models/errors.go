package models

import "errors"

// Error taxonomy. Calculators and the version store return these wrapped
// with context; the API layer maps them to status codes with errors.Is.
var (
	// ErrValidation covers malformed or missing input (400).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers a missing estimate, version or rental (404).
	ErrNotFound = errors.New("not found")

	// ErrItemNotFound means no line item matched the reference (404).
	ErrItemNotFound = errors.New("line item not found")

	// ErrRuleNotFound means no pricing rule exists for a room/day/period
	// combination. It must propagate; defaulting to zero under-bills.
	ErrRuleNotFound = errors.New("pricing rule not found")

	// ErrResourceNotFound means a slot references an unknown resource id.
	// Unlike the historical behavior this is fatal to the calculation.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrConcurrentModification is an optimistic-lock mismatch (409);
	// the caller retries the read-modify-write.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrExternalService covers CMS, mail and PDF failures (502).
	ErrExternalService = errors.New("external service error")

	// ErrTimeout means a bounded poll or retry budget was exhausted (504).
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidTransition rejects a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
