// Package slack implements the Slack Events API connector.
package slack

import "time"

// InnerEvent is the event_callback payload fragment Slack wraps inside
// the outer envelope.
type InnerEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	User     string `json:"user,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Channel  string `json:"channel,omitempty"`
	TS       string `json:"ts,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Reaction string `json:"reaction,omitempty"`
}

// BlockAction is one interactive component action.
type BlockAction struct {
	ActionID string `json:"action_id"`
	BlockID  string `json:"block_id,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Interactive is a block_actions interaction payload.
type Interactive struct {
	Type    string        `json:"type"`
	User    *UserRef      `json:"user,omitempty"`
	Channel *ChannelRef   `json:"channel,omitempty"`
	Actions []BlockAction `json:"actions,omitempty"`
}

// UserRef is the short user reference in interaction payloads.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ChannelRef is the short channel reference in interaction payloads.
type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SlashCommand is a form-encoded slash command invocation.
type SlashCommand struct {
	Command     string `json:"command"`
	Text        string `json:"text,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	ResponseURL string `json:"response_url,omitempty"`
	TriggerID   string `json:"trigger_id,omitempty"`
}

// Event wraps one Slack payload fragment: an event_callback inner
// event, an interaction payload, or a slash command.
type Event struct {
	inner       *InnerEvent
	interactive *Interactive
	command     *SlashCommand
	at          time.Time
}

// NewEvent wraps an event_callback inner event.
func NewEvent(inner *InnerEvent, at time.Time) *Event {
	return &Event{inner: inner, at: at}
}

// NewInteractiveEvent wraps an interaction payload.
func NewInteractiveEvent(interactive *Interactive, at time.Time) *Event {
	return &Event{interactive: interactive, at: at}
}

// NewCommandEvent wraps a slash command invocation.
func NewCommandEvent(command *SlashCommand, at time.Time) *Event {
	return &Event{command: command, at: at}
}

// RawEvent returns the wrapped fragment.
func (e *Event) RawEvent() any {
	if e.interactive != nil {
		return e.interactive
	}
	if e.command != nil {
		return e.command
	}
	return e.inner
}

// Timestamp returns the capture time.
func (e *Event) Timestamp() time.Time { return e.at }

// Inner returns the typed inner event, or nil for interactive events.
func (e *Event) Inner() *InnerEvent { return e.inner }

// Interactive returns the typed interaction payload, or nil.
func (e *Event) Interactive() *Interactive { return e.interactive }

// IsMessage reports whether the fragment is a message event.
func (e *Event) IsMessage() bool {
	return e.inner != nil && e.inner.Type == "message"
}

// IsAppMention reports whether the fragment mentions the app.
func (e *Event) IsAppMention() bool {
	return e.inner != nil && e.inner.Type == "app_mention"
}

// IsReactionAdded reports whether the fragment is a reaction.
func (e *Event) IsReactionAdded() bool {
	return e.inner != nil && e.inner.Type == "reaction_added"
}

// IsBlockActions reports whether the fragment is a block_actions
// interaction.
func (e *Event) IsBlockActions() bool {
	return e.interactive != nil && e.interactive.Type == "block_actions"
}

// IsInteractiveMessage reports whether the fragment is a legacy
// interactive_message interaction.
func (e *Event) IsInteractiveMessage() bool {
	return e.interactive != nil && e.interactive.Type == "interactive_message"
}

// IsViewSubmission reports whether the fragment is a modal
// view_submission interaction.
func (e *Event) IsViewSubmission() bool {
	return e.interactive != nil && e.interactive.Type == "view_submission"
}

// IsCommand reports whether the fragment is a slash command.
func (e *Event) IsCommand() bool {
	return e.command != nil && e.command.Command != ""
}

// Command returns the slash command name including the leading slash,
// or "".
func (e *Event) Command() string {
	if e.command == nil {
		return ""
	}
	return e.command.Command
}

// CommandArgs returns the text typed after the slash command, or "".
func (e *Event) CommandArgs() string {
	if e.command == nil {
		return ""
	}
	return e.command.Text
}

// IsBotMessage reports whether the message was produced by a bot.
func (e *Event) IsBotMessage() bool {
	return e.inner != nil && (e.inner.BotID != "" || e.inner.Subtype == "bot_message")
}

// IsText reports whether the fragment is a message with text.
func (e *Event) IsText() bool {
	return e.IsMessage() && e.inner.Text != ""
}

// Text returns the message text, or "" when the fragment is not a
// message.
func (e *Event) Text() string {
	if !e.IsText() {
		return ""
	}
	return e.inner.Text
}

// IsPayload reports whether the fragment is an interaction with an
// action value.
func (e *Event) IsPayload() bool {
	return e.interactive != nil && len(e.interactive.Actions) > 0 &&
		e.interactive.Actions[0].Value != ""
}

// Payload returns the first action's value, or "" when the interaction
// carries none.
func (e *Event) Payload() string {
	if !e.IsPayload() {
		return ""
	}
	return e.interactive.Actions[0].Value
}

// SenderID returns the acting user's id, or "".
func (e *Event) SenderID() string {
	if e.interactive != nil {
		if e.interactive.User == nil {
			return ""
		}
		return e.interactive.User.ID
	}
	if e.command != nil {
		return e.command.UserID
	}
	if e.inner == nil {
		return ""
	}
	return e.inner.User
}

// ChannelID returns the channel the fragment belongs to, or "".
func (e *Event) ChannelID() string {
	if e.interactive != nil {
		if e.interactive.Channel == nil {
			return ""
		}
		return e.interactive.Channel.ID
	}
	if e.command != nil {
		return e.command.ChannelID
	}
	if e.inner == nil {
		return ""
	}
	return e.inner.Channel
}
