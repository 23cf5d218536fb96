package messenger

import (
	"context"
	"errors"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/session"
)

// Context is the Messenger-specific facade passed to handlers.
type Context struct {
	event  *Event
	sess   *session.Session
	key    string
	client *Client
}

// Platform returns "messenger".
func (c *Context) Platform() string { return PlatformName }

// Event returns the bound event.
func (c *Context) Event() bot.Event { return c.event }

// TypedEvent returns the event with its Messenger accessors.
func (c *Context) TypedEvent() *Event { return c.event }

// Session returns the resolved session document.
func (c *Context) Session() *session.Session { return c.sess }

// SessionKey returns the session key, or "" for stateless events.
func (c *Context) SessionKey() string { return c.key }

// Client returns the page-scoped API client for advanced calls.
func (c *Context) Client() *Client { return c.client }

// SendText replies to the event's sender through the Send API.
func (c *Context) SendText(ctx context.Context, text string) error {
	if c.event.SenderID() == "" {
		return errors.New("event has no sender to reply to")
	}
	return c.client.SendText(ctx, c.event.SenderID(), text)
}
