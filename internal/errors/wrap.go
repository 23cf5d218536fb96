// Package errors provides error wrapping utilities for consistent error handling.
package errors

import (
	"fmt"
)

// ErrorWrapper provides context-aware error wrapping.
type ErrorWrapper struct {
	operation string
	module    string
}

// NewWrapper creates a new error wrapper with operation and module context.
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{
		module:    module,
		operation: operation,
	}
}

// Wrap wraps an error with operation context.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation: w.operation,
		Module:    w.module,
		Cause:     err,
		Message:   message,
	}
}

// Wrapf wraps an error with formatted message.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation: w.operation,
		Module:    w.module,
		Cause:     err,
		Message:   fmt.Sprintf(format, args...),
	}
}

// WrappedError carries internal error details plus a short description.
type WrappedError struct {
	Operation string // Operation being performed (e.g., "read_session", "handle_request")
	Module    string // Module name (e.g., "session", "bot", "slack")
	Cause     error  // Underlying error
	Message   string // Short description
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.Message, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}
