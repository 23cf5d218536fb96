// Package line implements the LINE Messaging API connector.
//
// Webhook payloads are verified against the channel secret and parsed
// with the official SDK's webhook types. Replies go through the reply
// token when one is available and fall back to push messages once the
// token is spent.
package line

import (
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Event wraps one LINE webhook event.
type Event struct {
	raw webhook.EventInterface
}

// NewEvent wraps a parsed webhook event.
func NewEvent(raw webhook.EventInterface) *Event {
	return &Event{raw: raw}
}

// RawEvent returns the SDK event.
func (e *Event) RawEvent() any { return e.raw }

// Timestamp returns the event time reported by the platform, or the
// zero time for event types without one.
func (e *Event) Timestamp() time.Time {
	if ms := e.timestampMillis(); ms > 0 {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

func (e *Event) timestampMillis() int64 {
	switch ev := e.raw.(type) {
	case webhook.MessageEvent:
		return ev.Timestamp
	case webhook.PostbackEvent:
		return ev.Timestamp
	case webhook.FollowEvent:
		return ev.Timestamp
	case webhook.UnfollowEvent:
		return ev.Timestamp
	case webhook.JoinEvent:
		return ev.Timestamp
	case webhook.LeaveEvent:
		return ev.Timestamp
	default:
		return 0
	}
}

// IsMessage reports whether the event carries message content.
func (e *Event) IsMessage() bool {
	_, ok := e.raw.(webhook.MessageEvent)
	return ok
}

// IsText reports whether the event is a text message.
func (e *Event) IsText() bool {
	ev, ok := e.raw.(webhook.MessageEvent)
	if !ok {
		return false
	}
	_, ok = ev.Message.(webhook.TextMessageContent)
	return ok
}

// Text returns the message text, or "".
func (e *Event) Text() string {
	ev, ok := e.raw.(webhook.MessageEvent)
	if !ok {
		return ""
	}
	if msg, ok := ev.Message.(webhook.TextMessageContent); ok {
		return msg.Text
	}
	return ""
}

// IsPayload reports whether the event is a postback.
func (e *Event) IsPayload() bool {
	ev, ok := e.raw.(webhook.PostbackEvent)
	return ok && ev.Postback != nil
}

// Payload returns the postback data, or "".
func (e *Event) Payload() string {
	ev, ok := e.raw.(webhook.PostbackEvent)
	if !ok || ev.Postback == nil {
		return ""
	}
	return ev.Postback.Data
}

// IsFollow reports whether the event is a follow.
func (e *Event) IsFollow() bool {
	_, ok := e.raw.(webhook.FollowEvent)
	return ok
}

// IsJoin reports whether the bot joined a group or room.
func (e *Event) IsJoin() bool {
	_, ok := e.raw.(webhook.JoinEvent)
	return ok
}

// SenderID returns the acting user's id, or "".
func (e *Event) SenderID() string {
	return userID(e.source())
}

// ChatID returns the conversation id the event happened in. One-on-one
// chats use the user id, groups the group id, rooms the room id.
func (e *Event) ChatID() string {
	return chatID(e.source())
}

// IsPersonalChat reports whether the event came from a one-on-one chat.
func (e *Event) IsPersonalChat() bool {
	_, ok := e.source().(webhook.UserSource)
	return ok
}

// ReplyToken returns the single-use reply token, or "" for event types
// that cannot be replied to.
func (e *Event) ReplyToken() string {
	switch ev := e.raw.(type) {
	case webhook.MessageEvent:
		return ev.ReplyToken
	case webhook.PostbackEvent:
		return ev.ReplyToken
	case webhook.FollowEvent:
		return ev.ReplyToken
	case webhook.JoinEvent:
		return ev.ReplyToken
	default:
		return ""
	}
}

// IsRedelivery reports whether the platform is redelivering the event.
func (e *Event) IsRedelivery() bool {
	var dc *webhook.DeliveryContext
	switch ev := e.raw.(type) {
	case webhook.MessageEvent:
		dc = ev.DeliveryContext
	case webhook.PostbackEvent:
		dc = ev.DeliveryContext
	case webhook.FollowEvent:
		dc = ev.DeliveryContext
	case webhook.JoinEvent:
		dc = ev.DeliveryContext
	}
	return dc != nil && dc.IsRedelivery
}

// EventID returns the platform's webhook event id, or "".
func (e *Event) EventID() string {
	switch ev := e.raw.(type) {
	case webhook.MessageEvent:
		return ev.WebhookEventId
	case webhook.PostbackEvent:
		return ev.WebhookEventId
	case webhook.FollowEvent:
		return ev.WebhookEventId
	case webhook.JoinEvent:
		return ev.WebhookEventId
	default:
		return ""
	}
}

func (e *Event) source() webhook.SourceInterface {
	switch ev := e.raw.(type) {
	case webhook.MessageEvent:
		return ev.Source
	case webhook.PostbackEvent:
		return ev.Source
	case webhook.FollowEvent:
		return ev.Source
	case webhook.UnfollowEvent:
		return ev.Source
	case webhook.JoinEvent:
		return ev.Source
	case webhook.LeaveEvent:
		return ev.Source
	default:
		return nil
	}
}

func chatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

func userID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
