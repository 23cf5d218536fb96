// Package bot implements the platform-agnostic dispatch pipeline.
//
// A Connector normalizes one webhook body into Events, derives a session
// key per event, and builds the Context handed to application handlers.
// The Bot sequences those steps on every inbound request and persists
// session mutations through the session store afterward.
package bot

import "time"

// Event is an immutable classified view over one inbound payload fragment.
//
// Classifier accessors are pure functions of the wrapped fragment. Typed
// accessors return the zero value when the classifier does not apply, they
// never panic on missing nested fields.
type Event interface {
	// RawEvent returns the platform-native payload fragment.
	RawEvent() any

	// Timestamp returns the capture time recorded at construction.
	Timestamp() time.Time

	// IsMessage reports whether the fragment is a user message.
	IsMessage() bool

	// IsText reports whether the fragment is a text message.
	IsText() bool

	// Text returns the message text, or "" when IsText is false.
	Text() string

	// IsPayload reports whether the fragment carries an action payload,
	// such as a postback or callback query.
	IsPayload() bool

	// Payload returns the action payload, or "" when IsPayload is false.
	Payload() string

	// SenderID returns the platform identity of the sender, or "" when
	// the fragment has no attributable sender.
	SenderID() string
}
