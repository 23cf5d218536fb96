// Package messenger implements the Facebook Messenger connector.
//
// One webhook request can fan in several logically distinct entries,
// each with its own messaging, standby, or changes array. The parsing
// helpers here are shared with the facebook package, which handles the
// changes entries for page feed events.
package messenger

import "time"

// Party identifies one side of a messaging exchange.
type Party struct {
	ID string `json:"id"`
}

// QuickReply is a tapped quick reply attached to a message.
type QuickReply struct {
	Payload string `json:"payload"`
}

// MessagePayload is the message part of a messaging item.
type MessagePayload struct {
	MID         string         `json:"mid,omitempty"`
	Text        string         `json:"text,omitempty"`
	QuickReply  *QuickReply    `json:"quick_reply,omitempty"`
	Attachments []map[string]any `json:"attachments,omitempty"`
	IsEcho      bool           `json:"is_echo,omitempty"`
}

// Postback is a tapped persistent menu or button postback.
type Postback struct {
	Title    string    `json:"title,omitempty"`
	Payload  string    `json:"payload,omitempty"`
	Referral *Referral `json:"referral,omitempty"`
}

// Referral carries the ref parameter from an m.me link, ad, or code
// scan that brought the user into the conversation.
type Referral struct {
	Ref    string `json:"ref,omitempty"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
}

// AccountLinking is an account linking status change.
type AccountLinking struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// Messaging is one messaging (or standby) item inside an entry.
type Messaging struct {
	Sender         *Party          `json:"sender,omitempty"`
	Recipient      *Party          `json:"recipient,omitempty"`
	Timestamp      int64           `json:"timestamp,omitempty"`
	Message        *MessagePayload `json:"message,omitempty"`
	Postback       *Postback       `json:"postback,omitempty"`
	AccountLinking *AccountLinking `json:"account_linking,omitempty"`
	Referral       *Referral       `json:"referral,omitempty"`
	Read           map[string]any  `json:"read,omitempty"`
	Delivery       map[string]any  `json:"delivery,omitempty"`
}

// Entry is one logical item in the webhook fan-in array.
type Entry struct {
	ID        string           `json:"id"` // page id
	Time      int64            `json:"time,omitempty"`
	Messaging []Messaging      `json:"messaging,omitempty"`
	Standby   []Messaging      `json:"standby,omitempty"`
	Changes   []map[string]any `json:"changes,omitempty"`
}

// Webhook is the outer document posted by the platform.
type Webhook struct {
	Object string  `json:"object"` // "page"
	Entry  []Entry `json:"entry"`
}

// Event wraps one messaging item plus its page id.
type Event struct {
	messaging *Messaging
	pageID    string
	standby   bool
	at        time.Time
}

// NewEvent wraps a messaging item.
func NewEvent(m *Messaging, pageID string, standby bool, at time.Time) *Event {
	return &Event{messaging: m, pageID: pageID, standby: standby, at: at}
}

// RawEvent returns the wrapped messaging item.
func (e *Event) RawEvent() any { return e.messaging }

// Timestamp returns the capture time.
func (e *Event) Timestamp() time.Time { return e.at }

// Messaging returns the typed messaging item.
func (e *Event) Messaging() *Messaging { return e.messaging }

// PageID returns the receiving page's id.
func (e *Event) PageID() string { return e.pageID }

// IsStandby reports whether the item came from the standby channel,
// meaning another app currently controls the conversation.
func (e *Event) IsStandby() bool { return e.standby }

// IsMessage reports whether the item is a user message. Echoes of the
// page's own sends do not count.
func (e *Event) IsMessage() bool {
	return e.messaging.Message != nil && !e.messaging.Message.IsEcho
}

// IsText reports whether the item is a text message.
func (e *Event) IsText() bool {
	return e.IsMessage() && e.messaging.Message.Text != ""
}

// Text returns the message text, or "".
func (e *Event) Text() string {
	if !e.IsText() {
		return ""
	}
	return e.messaging.Message.Text
}

// IsPostback reports whether the item is a postback.
func (e *Event) IsPostback() bool { return e.messaging.Postback != nil }

// IsQuickReply reports whether the item is a tapped quick reply.
func (e *Event) IsQuickReply() bool {
	return e.IsMessage() && e.messaging.Message.QuickReply != nil
}

// IsPayload reports whether the item carries an action payload from a
// postback or quick reply.
func (e *Event) IsPayload() bool {
	if e.IsPostback() && e.messaging.Postback.Payload != "" {
		return true
	}
	return e.IsQuickReply() && e.messaging.Message.QuickReply.Payload != ""
}

// Payload returns the postback or quick reply payload, or "".
func (e *Event) Payload() string {
	if e.IsPostback() && e.messaging.Postback.Payload != "" {
		return e.messaging.Postback.Payload
	}
	if e.IsQuickReply() {
		return e.messaging.Message.QuickReply.Payload
	}
	return ""
}

// IsAccountLinking reports whether the item is an account linking
// status change.
func (e *Event) IsAccountLinking() bool { return e.messaging.AccountLinking != nil }

// AccountLinkingStatus returns the linking status, or "".
func (e *Event) AccountLinkingStatus() string {
	if e.messaging.AccountLinking == nil {
		return ""
	}
	return e.messaging.AccountLinking.Status
}

// IsEcho reports whether the item echoes one of the page's own sends.
func (e *Event) IsEcho() bool {
	return e.messaging.Message != nil && e.messaging.Message.IsEcho
}

// IsDelivery reports whether the item is a delivery receipt.
func (e *Event) IsDelivery() bool { return e.messaging.Delivery != nil }

// IsRead reports whether the item is a read receipt.
func (e *Event) IsRead() bool { return e.messaging.Read != nil }

// IsReferral reports whether the item carries a referral, either
// standalone or attached to a postback.
func (e *Event) IsReferral() bool {
	if e.messaging.Referral != nil {
		return true
	}
	return e.messaging.Postback != nil && e.messaging.Postback.Referral != nil
}

// Ref returns the referral's ref parameter, or "".
func (e *Event) Ref() string {
	if e.messaging.Referral != nil {
		return e.messaging.Referral.Ref
	}
	if e.messaging.Postback != nil && e.messaging.Postback.Referral != nil {
		return e.messaging.Postback.Referral.Ref
	}
	return ""
}

// SenderID returns the sender PSID, or "".
func (e *Event) SenderID() string {
	if e.messaging.Sender == nil {
		return ""
	}
	return e.messaging.Sender.ID
}
