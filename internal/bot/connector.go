package bot

import (
	"context"
	"errors"

	"github.com/duskbyte/courier-go/internal/session"
)

// ErrWrongEventType is returned by CreateContext when the event was not
// produced by this connector.
var ErrWrongEventType = errors.New("event does not belong to this connector")

// Connector is the per-platform adapter composed by Bot.
type Connector interface {
	// Platform returns a constant discriminant literal, never computed.
	Platform() string

	// MapRequestToEvents normalizes a webhook body into an ordered
	// sequence of events. Entries the connector cannot classify are
	// dropped, not errors. An empty slice ends the pipeline with no
	// further side effects.
	MapRequestToEvents(req *Request) []Event

	// UniqueSessionKey resolves a stable identity string for session
	// partitioning. An empty key means the event is stateless: the
	// handler still runs, against an ephemeral session that is never
	// persisted. Resolution may require platform API calls, a failed
	// lookup degrades to a stateless event.
	UniqueSessionKey(ctx context.Context, event Event) (string, error)

	// UpdateSession merges identity and profile data from the event
	// into the session. The merge only applies while session.User is
	// unset; once populated the user is immutable.
	UpdateSession(ctx context.Context, sess *session.Session, event Event) error

	// CreateContext builds the event-bound facade passed to handlers.
	CreateContext(ctx context.Context, event Event, sess *session.Session, sessionKey string) (Context, error)
}

// Preprocessor is implemented by connectors with a pre-dispatch gate,
// primarily payload authenticity verification.
type Preprocessor interface {
	Preprocess(ctx context.Context, req *Request) PreprocessResult
}

// UserProfiler is implemented by connectors that can fetch a user
// profile from the platform API. The Bot calls it once per session, on
// the first event from an identity, to enrich session.User.
type UserProfiler interface {
	UserProfile(ctx context.Context, event Event) (map[string]any, error)
}
