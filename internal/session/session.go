// Package session provides durable per-identity conversation state and a
// pluggable store for it. A session is keyed by "<platform>:<identity>" and
// holds a write-once user profile, optional page metadata, free-form state
// for application handlers, and a last-activity clock used for TTL expiry.
package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// updatedAtField is the wire name for the profile snapshot timestamp.
const updatedAtField = "_updatedAt"

// Key builds a session key from a platform discriminant and an identity
// string, e.g. "telegram:42".
func Key(platform, identity string) string {
	return fmt.Sprintf("%s:%s", platform, identity)
}

// User is the identity attached to a session. Profile fields are flattened
// into the user object on the wire, alongside "id" and "_updatedAt".
type User struct {
	ID        string
	Platform  string
	UpdatedAt time.Time
	Profile   map[string]any
}

// MarshalJSON flattens Profile into the top-level user object.
func (u User) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(u.Profile)+3)
	for k, v := range u.Profile {
		m[k] = v
	}
	m["id"] = u.ID
	if u.Platform != "" {
		m["platform"] = u.Platform
	}
	m[updatedAtField] = u.UpdatedAt.UTC().Format(time.RFC3339)
	return json.Marshal(m)
}

// UnmarshalJSON splits "id", "platform" and "_updatedAt" out of the flattened
// object; everything else lands in Profile.
func (u *User) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if id, ok := m["id"].(string); ok {
		u.ID = id
	}
	if platform, ok := m["platform"].(string); ok {
		u.Platform = platform
	}
	if raw, ok := m[updatedAtField].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			u.UpdatedAt = t
		}
	}
	delete(m, "id")
	delete(m, "platform")
	delete(m, updatedAtField)
	if len(m) > 0 {
		u.Profile = m
	}
	return nil
}

// Page is platform-supplied page/workspace metadata (e.g. a Facebook page or
// a Slack team) attached to a session alongside the user.
type Page struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"_updatedAt"`
}

// Session is one conversation document. User and Page are write-once: once
// populated they must not be replaced for the lifetime of the session. The
// guard is enforced by SetUser/SetPage at merge time; connectors must go
// through them instead of assigning the fields directly.
type Session struct {
	User         *User          `json:"user,omitempty"`
	Page         *Page          `json:"page,omitempty"`
	State        map[string]any `json:"state,omitempty"`
	LastActivity int64          `json:"lastActivity"`
}

// New returns an empty session document.
func New() *Session {
	return &Session{State: make(map[string]any)}
}

// SetUser populates the session user if and only if it is still unset.
// It reports whether the write happened.
func (s *Session) SetUser(u *User) bool {
	if s.User != nil {
		return false
	}
	s.User = u
	return true
}

// SetPage populates the session page if and only if it is still unset.
func (s *Session) SetPage(p *Page) bool {
	if s.Page != nil {
		return false
	}
	s.Page = p
	return true
}

// Touch refreshes the last-activity clock to now.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now.UnixMilli()
}

// Expired reports whether the session's last activity is older than
// now - expiresIn. A zero expiresIn means sessions never expire.
func (s *Session) Expired(expiresIn time.Duration, now time.Time) bool {
	if expiresIn <= 0 {
		return false
	}
	if s.LastActivity == 0 {
		return false
	}
	return time.UnixMilli(s.LastActivity).Before(now.Add(-expiresIn))
}

// Clone returns a deep copy of the session via its wire encoding.
// Used by the in-memory backend so callers cannot alias stored documents.
func (s *Session) Clone() (*Session, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &out, nil
}
