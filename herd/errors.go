/*
errors.go - Centralized error types for the herd engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Domain packages wrap these with additional context via %w.

ERROR CATEGORIES:
  1. Client errors - caller supplied structurally invalid input
  2. Persistence errors - a storage step of an atomic unit failed
  3. State errors - an operation does not apply to the record's status

SEE ALSO:
  - billing/installments.go: rejects invalid generator input
  - store/sqlite/sqlite.go: wraps driver failures
*/
package herd

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned when a caller supplies structurally
	// invalid input to a pure function or service operation. Never coerced
	// silently.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation doesn't apply to the
	// record's current status (e.g. paying a cancelled installment).
	ErrConflict = errors.New("conflict")

	// ErrPersistence is returned when a step of a multi-record write fails
	// at the storage boundary. The surrounding atomic unit is aborted and
	// no partial state is left behind.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field of a request was invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or an inapplicable state transition.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
