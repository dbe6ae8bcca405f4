package record

import (
	"errors"
	"fmt"
)

// ValidationError indicates a transaction or block that is malformed or whose
// content no longer matches its hash. Records failing validation are never
// persisted.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return ve.Reason
}

// NewValidationError constructs a validation error from a format string.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError checks for a validation error in the chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// =============================================================================

// IntegrityError indicates a record loaded from an external source whose
// recomputed hash does not match the hash it carries. The affected record
// must be flagged for audit, never silently skipped.
type IntegrityError struct {
	Resource string
	ID       string
	Reason   string
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure on %s[%s]: %s", ie.Resource, ie.ID, ie.Reason)
}

// IsIntegrityError checks for an integrity error in the chain.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
