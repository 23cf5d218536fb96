package bot

import (
	"context"

	"github.com/duskbyte/courier-go/internal/session"
)

// Context is the event-bound facade handlers receive. Platform connectors
// return richer concrete types; handlers that need platform capabilities
// type-assert on them. SendText is the one capability every platform must
// provide as a fallback.
type Context interface {
	// Platform returns the connector's discriminant literal.
	Platform() string

	// Event returns the event this context is bound to.
	Event() Event

	// Session returns the resolved session document, never nil. For
	// events without a session key it is an ephemeral document that is
	// not persisted.
	Session() *session.Session

	// SessionKey returns the session key, or "" for stateless events.
	SessionKey() string

	// SendText delivers a plain text reply to the event's origin.
	SendText(ctx context.Context, text string) error
}

// Handler processes one event. A non-nil returned Handler is a
// continuation invoked with the same Context before the pipeline
// proceeds to persistence.
type Handler func(ctx context.Context, c Context) (Handler, error)

// Plugin runs before the primary handler on every event, in
// registration order. Plugins may mutate the Context's session but must
// not replace it.
type Plugin func(ctx context.Context, c Context) error

// ErrorHandler receives errors raised during event processing. The
// Context may be nil when the error happened before one was built.
type ErrorHandler func(ctx context.Context, err error, c Context)
