package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duskbyte/courier-go/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error")
}

// failingBackend surfaces an error from every operation.
type failingBackend struct{}

func (failingBackend) Init(context.Context) error                        { return nil }
func (failingBackend) Get(context.Context, string) (*Session, error)     { return nil, errors.New("backend down") }
func (failingBackend) Set(context.Context, string, *Session) error       { return errors.New("backend down") }
func (failingBackend) Delete(context.Context, string) error              { return errors.New("backend down") }
func (failingBackend) List(context.Context) (map[string]*Session, error) { return nil, errors.New("backend down") }
func (failingBackend) Close() error                                      { return nil }

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryBackend(0), time.Hour, testLogger())
	if err := st.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	key := Key("telegram", "42")
	if got := st.Read(ctx, key); got != nil {
		t.Fatal("expected miss before first write")
	}

	sess := New()
	sess.State["step"] = "checkout"
	st.Write(ctx, key, sess)

	if sess.LastActivity == 0 {
		t.Error("Write should refresh last activity")
	}

	got := st.Read(ctx, key)
	if got == nil {
		t.Fatal("expected hit after write")
	}
	if got.State["step"] != "checkout" {
		t.Errorf("state = %v, want step=checkout", got.State)
	}
}

func TestStoreLazyExpiry(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryBackend(0), time.Minute, testLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	key := Key("line", "U1")
	st.Write(ctx, key, New())

	if st.Read(ctx, key) == nil {
		t.Fatal("fresh session should be readable")
	}

	// Two minutes later the one-minute window has lapsed.
	now = now.Add(2 * time.Minute)
	if st.Read(ctx, key) != nil {
		t.Error("expired session should read as a miss")
	}
	if sessions := st.All(ctx); len(sessions) != 0 {
		t.Errorf("All() returned %d expired sessions", len(sessions))
	}
}

func TestStoreZeroWindowNeverExpires(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryBackend(0), 0, testLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	key := Key("line", "U1")
	st.Write(ctx, key, New())

	now = now.Add(1000 * time.Hour)
	if st.Read(ctx, key) == nil {
		t.Error("sessions should never expire with a zero window")
	}
}

func TestStoreDegradesOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	st := NewStore(failingBackend{}, time.Hour, testLogger())

	if got := st.Read(ctx, "k"); got != nil {
		t.Error("read failure should degrade to a miss")
	}
	st.Write(ctx, "k", New()) // must not panic
	st.Destroy(ctx, "k")
	if got := st.All(ctx); got != nil {
		t.Errorf("All() = %v, want nil on backend failure", got)
	}
}

func TestStoreDestroy(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryBackend(0), time.Hour, testLogger())

	key := Key("slack", "T1:U2")
	st.Write(ctx, key, New())
	st.Destroy(ctx, key)

	if st.Read(ctx, key) != nil {
		t.Error("destroyed session should read as a miss")
	}
}

func TestMemoryBackendEvictsOldest(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(2)

	oldest := New()
	oldest.Touch(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	newer := New()
	newer.Touch(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
	newest := New()
	newest.Touch(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if err := backend.Set(ctx, "a", oldest); err != nil {
		t.Fatal(err)
	}
	if err := backend.Set(ctx, "b", newer); err != nil {
		t.Fatal(err)
	}
	if err := backend.Set(ctx, "c", newest); err != nil {
		t.Fatal(err)
	}

	if got, _ := backend.Get(ctx, "a"); got != nil {
		t.Error("oldest session should have been evicted")
	}
	if got, _ := backend.Get(ctx, "b"); got == nil {
		t.Error("newer session should survive eviction")
	}
	if got, _ := backend.Get(ctx, "c"); got == nil {
		t.Error("newest session should survive eviction")
	}
}

func TestMemoryBackendCopiesOnGet(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)

	sess := New()
	sess.State["n"] = 1
	if err := backend.Set(ctx, "k", sess); err != nil {
		t.Fatal(err)
	}

	first, err := backend.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	first.State["n"] = 99

	second, err := backend.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if second.State["n"] == 99 {
		t.Error("mutating a returned session leaked into the store")
	}
}
