package telegram

import (
	"context"
	"errors"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/session"
)

// Context is the Telegram-specific facade passed to handlers.
type Context struct {
	event  *Event
	sess   *session.Session
	key    string
	client *Client
}

// Platform returns "telegram".
func (c *Context) Platform() string { return PlatformName }

// Event returns the bound event.
func (c *Context) Event() bot.Event { return c.event }

// TypedEvent returns the event with its Telegram accessors.
func (c *Context) TypedEvent() *Event { return c.event }

// Session returns the resolved session document.
func (c *Context) Session() *session.Session { return c.sess }

// SessionKey returns the session key, or "" for stateless events.
func (c *Context) SessionKey() string { return c.key }

// Client returns the authenticated API client for advanced calls.
func (c *Context) Client() *Client { return c.client }

// SendText replies into the chat the event came from.
func (c *Context) SendText(ctx context.Context, text string) error {
	chatID := c.event.ChatID()
	if chatID == "" {
		return errors.New("event has no chat to reply to")
	}
	return c.client.SendMessage(ctx, chatID, text)
}

// AnswerCallbackQuery acknowledges the event's callback query, if any.
func (c *Context) AnswerCallbackQuery(ctx context.Context) error {
	if !c.event.IsCallbackQuery() {
		return nil
	}
	return c.client.AnswerCallbackQuery(ctx, c.event.Update().CallbackQuery.ID)
}
