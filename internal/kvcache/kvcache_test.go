package kvcache

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(":memory:", ttl)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Set(ctx, "threads", "comment-1", "post-9"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, ok, err := c.Get(ctx, "threads", "comment-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok || value != "post-9" {
		t.Errorf("Get() = (%q, %v), want (post-9, true)", value, ok)
	}
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t, 0)

	_, ok, err := c.Get(context.Background(), "threads", "absent")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("expected absent key to miss")
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Set(ctx, "threads", "k", "thread-value"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Set(ctx, "profiles", "k", "profile-value"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, ok, err := c.Get(ctx, "threads", "k")
	if err != nil || !ok {
		t.Fatalf("Get() = (%q, %v, %v)", value, ok, err)
	}
	if value != "thread-value" {
		t.Errorf("expected thread-value, got %q", value)
	}
}

func TestSetReplaces(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Set(ctx, "threads", "k", "old"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Set(ctx, "threads", "k", "new"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, _, err := c.Get(ctx, "threads", "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if value != "new" {
		t.Errorf("expected new, got %q", value)
	}
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := c.Set(ctx, "profiles", "user-1", `{"name":"Ann"}`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// Move the clock past the TTL.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, ok, err := c.Get(ctx, "profiles", "user-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("expected entry to be expired")
	}
}

func TestCleanup(t *testing.T) {
	c := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := c.Set(ctx, "profiles", "user-1", "a"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Set(ctx, "profiles", "user-2", "b"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	removed, err := c.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed entries, got %d", removed)
	}
}

func TestCleanupWithoutTTL(t *testing.T) {
	c := newTestCache(t, 0)

	removed, err := c.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected no removals, got %d", removed)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	type profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	if err := c.SetJSON(ctx, "profiles", "user-1", profile{ID: "user-1", Name: "Ann"}); err != nil {
		t.Fatalf("SetJSON() error: %v", err)
	}

	var got profile
	ok, err := c.GetJSON(ctx, "profiles", "user-1", &got)
	if err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Name != "Ann" {
		t.Errorf("expected Ann, got %q", got.Name)
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Set(ctx, "threads", "k", "v"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Delete(ctx, "threads", "k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	_, ok, err := c.Get(ctx, "threads", "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("expected key to be deleted")
	}
}
