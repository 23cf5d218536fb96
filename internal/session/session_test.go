package session

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("telegram", "42"); got != "telegram:42" {
		t.Errorf("Key() = %q, want %q", got, "telegram:42")
	}
	if got := Key("slack", "T1:U2"); got != "slack:T1:U2" {
		t.Errorf("Key() = %q, want %q", got, "slack:T1:U2")
	}
}

func TestSetUserWriteOnce(t *testing.T) {
	sess := New()

	first := &User{ID: "U1", Profile: map[string]any{"display_name": "Alice"}}
	if !sess.SetUser(first) {
		t.Fatal("first SetUser should succeed")
	}
	if sess.SetUser(&User{ID: "U2"}) {
		t.Error("second SetUser should be rejected")
	}
	if sess.User.ID != "U1" {
		t.Errorf("user ID = %q, want U1", sess.User.ID)
	}
}

func TestSetPageWriteOnce(t *testing.T) {
	sess := New()

	if !sess.SetPage(&Page{ID: "P1"}) {
		t.Fatal("first SetPage should succeed")
	}
	if sess.SetPage(&Page{ID: "P2"}) {
		t.Error("second SetPage should be rejected")
	}
	if sess.Page.ID != "P1" {
		t.Errorf("page ID = %q, want P1", sess.Page.ID)
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastActivity time.Time
		expiresIn    time.Duration
		want         bool
	}{
		{"fresh session", now.Add(-time.Minute), time.Hour, false},
		{"stale session", now.Add(-2 * time.Hour), time.Hour, true},
		{"exactly at boundary", now.Add(-time.Hour), time.Hour, false},
		{"zero window never expires", now.Add(-1000 * time.Hour), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := New()
			sess.Touch(tt.lastActivity)
			if got := sess.Expired(tt.expiresIn, now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("never touched never expires", func(t *testing.T) {
		if New().Expired(time.Hour, now) {
			t.Error("session without activity should not expire")
		}
	})
}

func TestCloneIsIndependent(t *testing.T) {
	sess := New()
	sess.SetUser(&User{ID: "U1", Profile: map[string]any{"display_name": "Alice"}})
	sess.State["step"] = "checkout"
	sess.Touch(time.Now())

	clone, err := sess.Clone()
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}

	clone.State["step"] = "done"
	clone.User.Profile["display_name"] = "Bob"

	if sess.State["step"] != "checkout" {
		t.Error("mutating the clone's state leaked into the original")
	}
	if sess.User.Profile["display_name"] != "Alice" {
		t.Error("mutating the clone's profile leaked into the original")
	}
	if clone.LastActivity != sess.LastActivity {
		t.Errorf("clone lastActivity = %d, want %d", clone.LastActivity, sess.LastActivity)
	}
}

func TestUserJSONFlattensProfile(t *testing.T) {
	user := User{
		ID:        "U1",
		Platform:  "line",
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Profile:   map[string]any{"display_name": "Alice", "language": "en"},
	}

	raw, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if wire["id"] != "U1" || wire["display_name"] != "Alice" {
		t.Errorf("profile fields not flattened: %v", wire)
	}
	if _, ok := wire["Profile"]; ok {
		t.Error("nested Profile object should not appear on the wire")
	}

	var back User
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if back.ID != "U1" || back.Platform != "line" {
		t.Errorf("identity fields lost: %+v", back)
	}
	if back.Profile["language"] != "en" {
		t.Errorf("profile fields lost: %v", back.Profile)
	}
	if !back.UpdatedAt.Equal(user.UpdatedAt) {
		t.Errorf("updatedAt = %v, want %v", back.UpdatedAt, user.UpdatedAt)
	}
}
