package store

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every rejected mutation
	ErrValidation = errors.New("validation failed")
	// ErrClosed is returned by Dispatch after Close
	ErrClosed = errors.New("store is closed")
)

// ValidationError describes why an action was rejected. The config is left untouched.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets callers match with errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
