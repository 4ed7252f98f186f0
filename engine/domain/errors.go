package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and catalog failures.
var (
	ErrMissingRequestText = errors.New("missing request text")
	ErrMissingClientInfo  = errors.New("missing client info")
	ErrMissingItemNo      = errors.New("missing item number")
	ErrMissingDescription = errors.New("missing item description")
	ErrItemNotFound       = errors.New("inventory item not found")
	ErrInsufficientStock  = errors.New("insufficient stock available")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
