// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrSessionNotFound indicates no session exists for the requested key.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreNotInitialized indicates the session store was used before Init.
	ErrStoreNotInitialized = errors.New("session store not initialized")

	// ErrUnsupportedDriver indicates an unknown session store driver name.
	ErrUnsupportedDriver = errors.New("unsupported session store driver")

	// ErrSignatureMismatch indicates a webhook signature did not verify.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrNoConnector indicates no connector is registered for a platform.
	ErrNoConnector = errors.New("no connector registered for platform")

	// ErrInvalidPayload indicates a webhook body could not be decoded.
	ErrInvalidPayload = errors.New("invalid request payload")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrContextCanceled indicates context was canceled.
	ErrContextCanceled = errors.New("context canceled")
)

// IsSessionNotFound reports whether err wraps ErrSessionNotFound.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsSignatureMismatch reports whether err wraps ErrSignatureMismatch.
func IsSignatureMismatch(err error) bool {
	return errors.Is(err, ErrSignatureMismatch)
}

// IsInvalidPayload reports whether err wraps ErrInvalidPayload.
func IsInvalidPayload(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}

// VerificationError represents webhook request verification failures.
type VerificationError struct {
	Platform string
	Reason   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed on %s: %s", e.Platform, e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return ErrSignatureMismatch
}

// NewVerificationError creates a new verification error.
func NewVerificationError(platform, reason string) *VerificationError {
	return &VerificationError{
		Platform: platform,
		Reason:   reason,
	}
}

// ConnectorError represents platform API call failures with context.
type ConnectorError struct {
	Platform   string
	Operation  string
	StatusCode int
	Err        error
}

func (e *ConnectorError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("connector error (platform=%s, op=%s, status=%d): %v", e.Platform, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("connector error (platform=%s, op=%s): %v", e.Platform, e.Operation, e.Err)
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// NewConnectorError creates a new connector error.
func NewConnectorError(platform, operation string, statusCode int, err error) *ConnectorError {
	return &ConnectorError{
		Platform:   platform,
		Operation:  operation,
		StatusCode: statusCode,
		Err:        err,
	}
}
