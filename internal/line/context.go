package line

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// loadingSeconds is the animation duration requested from the
// platform. The API accepts 5 to 60 in steps of 5; the maximum covers
// the whole webhook processing window.
const loadingSeconds int32 = 60

// Context is the per-event handler context for LINE.
type Context struct {
	event   *Event
	sess    *session.Session
	key     string
	client  *messaging_api.MessagingApiAPI
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	replied bool
}

// Platform returns "line".
func (c *Context) Platform() string { return PlatformName }

// Event returns the wrapped event.
func (c *Context) Event() bot.Event { return c.event }

// TypedEvent returns the event with its platform type.
func (c *Context) TypedEvent() *Event { return c.event }

// Session returns the hydrated session, or nil for stateless events.
func (c *Context) Session() *session.Session { return c.sess }

// SessionKey returns the storage key, or "".
func (c *Context) SessionKey() string { return c.key }

// SendText sends a text message into the conversation. The first send
// spends the reply token; later sends in the same handler, and events
// without a token, fall back to a push message.
func (c *Context) SendText(_ context.Context, text string) error {
	message := messaging_api.TextMessage{Text: text}

	c.mu.Lock()
	token := ""
	if !c.replied {
		token = c.event.ReplyToken()
		c.replied = true
	}
	c.mu.Unlock()

	if token != "" {
		start := time.Now()
		_, err := c.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
			ReplyToken: token,
			Messages:   []messaging_api.MessageInterface{message},
		})
		if c.metrics != nil {
			c.metrics.RecordClientCall(PlatformName, "reply_message", time.Since(start).Seconds())
		}
		if err != nil {
			return fmt.Errorf("reply message: %w", err)
		}
		return nil
	}

	chatID := c.event.ChatID()
	if chatID == "" {
		return fmt.Errorf("no reply token and no chat id for event")
	}

	start := time.Now()
	_, err := c.client.PushMessage(&messaging_api.PushMessageRequest{
		To:       chatID,
		Messages: []messaging_api.MessageInterface{message},
	}, "")
	if c.metrics != nil {
		c.metrics.RecordClientCall(PlatformName, "push_message", time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// ShowLoading displays the typing animation in one-on-one chats. Group
// and room chats do not support it.
func (c *Context) ShowLoading() {
	if !c.event.IsPersonalChat() {
		return
	}
	chatID := c.event.ChatID()
	if chatID == "" {
		return
	}

	if _, err := c.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: loadingSeconds,
	}); err != nil {
		c.log.WithError(err).Warn("failed to show loading animation")
	}
}
