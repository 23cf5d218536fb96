package errors

import (
	"errors"
	"testing"
)

func TestErrorWrapper(t *testing.T) {
	wrapper := NewWrapper("session", "read_session")

	t.Run("Wrap returns nil for nil error", func(t *testing.T) {
		result := wrapper.Wrap(nil, "read failed")
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("Wrap creates WrappedError", func(t *testing.T) {
		baseErr := errors.New("database connection failed")
		wrapped := wrapper.Wrap(baseErr, "read failed")

		if wrapped == nil {
			t.Fatal("expected non-nil wrapped error")
		}

		wrappedErr, ok := wrapped.(*WrappedError)
		if !ok {
			t.Fatal("expected WrappedError type")
		}

		if wrappedErr.Module != "session" {
			t.Errorf("expected module 'session', got '%s'", wrappedErr.Module)
		}

		if wrappedErr.Operation != "read_session" {
			t.Errorf("expected operation 'read_session', got '%s'", wrappedErr.Operation)
		}

		if !errors.Is(wrapped, baseErr) {
			t.Error("wrapped error should unwrap to base error")
		}
	})

	t.Run("Wrapf formats message", func(t *testing.T) {
		baseErr := errors.New("not found")
		wrapped := wrapper.Wrapf(baseErr, "no session for key %s", "line:U1")

		wrappedErr := wrapped.(*WrappedError)
		expected := "no session for key line:U1"
		if wrappedErr.Message != expected {
			t.Errorf("expected '%s', got '%s'", expected, wrappedErr.Message)
		}
	})
}

func TestWrappedError_Error(t *testing.T) {
	wrapped := &WrappedError{
		Operation: "write_session",
		Module:    "session",
		Cause:     errors.New("db error"),
		Message:   "write failed",
	}

	expected := "[session:write_session] write failed: db error"
	if wrapped.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, wrapped.Error())
	}
}
