package facebook

import (
	"context"
	"errors"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/messenger"
	"github.com/duskbyte/courier-go/internal/session"
)

// Context is the feed-event facade passed to handlers.
type Context struct {
	event  *Event
	sess   *session.Session
	key    string
	client *messenger.Client
}

// Platform returns "facebook".
func (c *Context) Platform() string { return PlatformName }

// Event returns the bound event.
func (c *Context) Event() bot.Event { return c.event }

// TypedEvent returns the event with its feed accessors.
func (c *Context) TypedEvent() *Event { return c.event }

// Session returns the resolved session document.
func (c *Context) Session() *session.Session { return c.sess }

// SessionKey returns the session key, or "" for stateless events.
func (c *Context) SessionKey() string { return c.key }

// Client returns the page-scoped API client for advanced calls.
func (c *Context) Client() *messenger.Client { return c.client }

// SendText replies to the comment the event came from.
func (c *Context) SendText(ctx context.Context, text string) error {
	commentID := c.event.Value().CommentID
	if commentID == "" {
		return errors.New("event has no comment to reply to")
	}
	return c.client.SendComment(ctx, commentID, text)
}
