// Package telegram implements the Telegram Bot API connector.
//
// Telegram delivers one update per webhook request. Updates carry
// exactly one of the payload fields (message, edited message, channel
// post, callback query, poll, poll answer); everything else is nil.
package telegram

import (
	"strconv"
	"time"
)

// User is a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Language  string `json:"language_code,omitempty"`
}

// Chat is the conversation an update belongs to.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"` // private, group, supergroup, channel
	Title string `json:"title,omitempty"`
}

// Message is a Telegram message.
type Message struct {
	MessageID int64    `json:"message_id"`
	From      *User    `json:"from,omitempty"`
	Chat      *Chat    `json:"chat"`
	Date      int64    `json:"date"`
	Text      string   `json:"text,omitempty"`
	Photo     []any    `json:"photo,omitempty"`
	Sticker   any      `json:"sticker,omitempty"`
	ReplyTo   *Message `json:"reply_to_message,omitempty"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// Poll is a native Telegram poll.
type Poll struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	IsClosed bool   `json:"is_closed"`
}

// PollAnswer is a non-anonymous poll vote.
type PollAnswer struct {
	PollID    string `json:"poll_id"`
	User      *User  `json:"user"`
	OptionIDs []int  `json:"option_ids"`
}

// Update is one webhook delivery.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	EditedMessage *Message       `json:"edited_message,omitempty"`
	ChannelPost   *Message       `json:"channel_post,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
	Poll          *Poll          `json:"poll,omitempty"`
	PollAnswer    *PollAnswer    `json:"poll_answer,omitempty"`
}

// Event wraps one update.
type Event struct {
	update *Update
	at     time.Time
}

// NewEvent wraps an update with the capture timestamp.
func NewEvent(update *Update, at time.Time) *Event {
	return &Event{update: update, at: at}
}

// RawEvent returns the wrapped update.
func (e *Event) RawEvent() any { return e.update }

// Timestamp returns the capture time.
func (e *Event) Timestamp() time.Time { return e.at }

// Update returns the typed update.
func (e *Event) Update() *Update { return e.update }

// IsMessage reports whether the update is a new message.
func (e *Event) IsMessage() bool { return e.update.Message != nil }

// IsEditedMessage reports whether the update is an edit of a message.
func (e *Event) IsEditedMessage() bool { return e.update.EditedMessage != nil }

// IsChannelPost reports whether the update is a channel post.
func (e *Event) IsChannelPost() bool { return e.update.ChannelPost != nil }

// IsText reports whether the update is a text message.
func (e *Event) IsText() bool {
	return e.update.Message != nil && e.update.Message.Text != ""
}

// Text returns the message text, or "" for non-text updates.
func (e *Event) Text() string {
	if !e.IsText() {
		return ""
	}
	return e.update.Message.Text
}

// IsPayload reports whether the update is a callback query with data.
func (e *Event) IsPayload() bool {
	return e.update.CallbackQuery != nil && e.update.CallbackQuery.Data != ""
}

// Payload returns the callback query data, or "".
func (e *Event) Payload() string {
	if !e.IsPayload() {
		return ""
	}
	return e.update.CallbackQuery.Data
}

// IsCallbackQuery reports whether the update is a callback query.
func (e *Event) IsCallbackQuery() bool { return e.update.CallbackQuery != nil }

// IsPoll reports whether the update is a poll state change.
func (e *Event) IsPoll() bool { return e.update.Poll != nil }

// IsPollAnswer reports whether the update is a poll vote.
func (e *Event) IsPollAnswer() bool { return e.update.PollAnswer != nil }

// Sender returns the user the update is attributed to, or nil.
func (e *Event) Sender() *User {
	switch {
	case e.update.Message != nil:
		return e.update.Message.From
	case e.update.EditedMessage != nil:
		return e.update.EditedMessage.From
	case e.update.CallbackQuery != nil:
		return e.update.CallbackQuery.From
	case e.update.PollAnswer != nil:
		return e.update.PollAnswer.User
	default:
		return nil
	}
}

// SenderID returns the sender's user id, or "".
func (e *Event) SenderID() string {
	sender := e.Sender()
	if sender == nil {
		return ""
	}
	return strconv.FormatInt(sender.ID, 10)
}

// ChatID returns the id of the chat the update belongs to, or "".
// Poll answers have no chat; they partition by the voting user instead.
func (e *Event) ChatID() string {
	var chat *Chat
	switch {
	case e.update.Message != nil:
		chat = e.update.Message.Chat
	case e.update.EditedMessage != nil:
		chat = e.update.EditedMessage.Chat
	case e.update.ChannelPost != nil:
		chat = e.update.ChannelPost.Chat
	case e.update.CallbackQuery != nil && e.update.CallbackQuery.Message != nil:
		chat = e.update.CallbackQuery.Message.Chat
	}
	if chat == nil {
		if e.update.PollAnswer != nil && e.update.PollAnswer.User != nil {
			return strconv.FormatInt(e.update.PollAnswer.User.ID, 10)
		}
		return ""
	}
	return strconv.FormatInt(chat.ID, 10)
}
