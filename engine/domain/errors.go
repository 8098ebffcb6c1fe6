package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for producer validation and lookup.
var (
	ErrNotFound        = errors.New("producer not found")
	ErrInvalidProducer = errors.New("invalid producer")
	ErrMissingID       = errors.New("missing id")
	ErrMissingName     = errors.New("missing name")
	ErrNoProducts      = errors.New("no product categories")
	ErrBadCoordinates  = errors.New("coordinates out of range")
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
