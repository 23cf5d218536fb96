package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	got, ok := GetRequestID(ctx)
	if !ok {
		t.Fatal("expected request ID to be present")
	}
	if got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}
}

func TestRequestIDMissing(t *testing.T) {
	got, ok := GetRequestID(context.Background())
	if ok {
		t.Error("expected no request ID on empty context")
	}
	if got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestSessionKeyRoundTrip(t *testing.T) {
	ctx := WithSessionKey(context.Background(), "line:U1234")

	if got := GetSessionKey(ctx); got != "line:U1234" {
		t.Errorf("GetSessionKey() = %q, want %q", got, "line:U1234")
	}
	if got := GetSessionKey(context.Background()); got != "" {
		t.Errorf("GetSessionKey() on empty context = %q, want empty", got)
	}
}

func TestPlatformRoundTrip(t *testing.T) {
	ctx := WithPlatform(context.Background(), "telegram")

	if got := GetPlatform(ctx); got != "telegram" {
		t.Errorf("GetPlatform() = %q, want %q", got, "telegram")
	}
	if got := GetPlatform(context.Background()); got != "" {
		t.Errorf("GetPlatform() on empty context = %q, want empty", got)
	}
}

func TestPreserveTracingCarriesValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-456")
	ctx = WithSessionKey(ctx, "slack:C1:U2")
	ctx = WithPlatform(ctx, "slack")

	detached := PreserveTracing(ctx)

	if got, ok := GetRequestID(detached); !ok || got != "req-456" {
		t.Errorf("request ID = %q (ok=%v), want req-456", got, ok)
	}
	if got := GetSessionKey(detached); got != "slack:C1:U2" {
		t.Errorf("session key = %q, want slack:C1:U2", got)
	}
	if got := GetPlatform(detached); got != "slack" {
		t.Errorf("platform = %q, want slack", got)
	}
}

func TestPreserveTracingDetachesCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	parent = WithRequestID(parent, "req-789")

	detached := PreserveTracing(parent)
	cancel()

	select {
	case <-detached.Done():
		t.Fatal("detached context should not inherit cancellation")
	case <-time.After(10 * time.Millisecond):
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context should not inherit deadlines")
	}
}

func TestPreserveTracingEmptyParent(t *testing.T) {
	detached := PreserveTracing(context.Background())

	if _, ok := GetRequestID(detached); ok {
		t.Error("expected no request ID")
	}
	if got := GetSessionKey(detached); got != "" {
		t.Errorf("session key = %q, want empty", got)
	}
}
