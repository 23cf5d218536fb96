package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrSessionNotFound is recognized",
			err:      ErrSessionNotFound,
			checkFn:  IsSessionNotFound,
			expected: true,
		},
		{
			name:     "Wrapped ErrSessionNotFound is recognized",
			err:      errors.Join(ErrSessionNotFound, errors.New("additional context")),
			checkFn:  IsSessionNotFound,
			expected: true,
		},
		{
			name:     "Different error is not ErrSessionNotFound",
			err:      ErrInvalidPayload,
			checkFn:  IsSessionNotFound,
			expected: false,
		},
		{
			name:     "ErrSignatureMismatch is recognized",
			err:      ErrSignatureMismatch,
			checkFn:  IsSignatureMismatch,
			expected: true,
		},
		{
			name:     "ErrInvalidPayload is recognized",
			err:      ErrInvalidPayload,
			checkFn:  IsInvalidPayload,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.checkFn(tt.err)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVerificationError(t *testing.T) {
	err := NewVerificationError("slack", "timestamp too old")

	if err.Platform != "slack" {
		t.Errorf("expected platform 'slack', got '%s'", err.Platform)
	}

	expected := "verification failed on slack: timestamp too old"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}

	if !errors.Is(err, ErrSignatureMismatch) {
		t.Error("expected verification error to unwrap to ErrSignatureMismatch")
	}
}

func TestConnectorError(t *testing.T) {
	baseErr := errors.New("connection timeout")
	err := NewConnectorError("messenger", "get_user_profile", 500, baseErr)

	if err.Platform != "messenger" {
		t.Errorf("expected platform 'messenger', got '%s'", err.Platform)
	}

	if err.StatusCode != 500 {
		t.Errorf("expected status code 500, got %d", err.StatusCode)
	}

	if !errors.Is(err, baseErr) {
		t.Error("expected error to wrap base error")
	}

	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}

	// without status code
	err2 := NewConnectorError("messenger", "get_user_profile", 0, baseErr)
	if err2.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
