// Package facebook implements the page feed connector.
//
// It composes the messenger package: messaging and standby entries
// delegate to the messenger connector, while feed change entries
// (comments on page posts) are handled here, including the hierarchical
// comment-thread identity walk.
package facebook

import "time"

// From identifies the author of a feed item.
type From struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ChangeValue is the value part of one feed change.
type ChangeValue struct {
	Item        string `json:"item"` // comment, post, reaction, ...
	Verb        string `json:"verb"` // add, edited, remove, ...
	CommentID   string `json:"comment_id,omitempty"`
	PostID      string `json:"post_id,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	From        *From  `json:"from,omitempty"`
	Message     string `json:"message,omitempty"`
	CreatedTime int64  `json:"created_time,omitempty"`
}

// Event wraps one feed change value plus its page id.
type Event struct {
	value  *ChangeValue
	pageID string
	at     time.Time
}

// NewEvent wraps a feed change value.
func NewEvent(value *ChangeValue, pageID string, at time.Time) *Event {
	return &Event{value: value, pageID: pageID, at: at}
}

// RawEvent returns the wrapped change value.
func (e *Event) RawEvent() any { return e.value }

// Timestamp returns the capture time.
func (e *Event) Timestamp() time.Time { return e.at }

// Value returns the typed change value.
func (e *Event) Value() *ChangeValue { return e.value }

// PageID returns the page the change happened on.
func (e *Event) PageID() string { return e.pageID }

// IsComment reports whether the change is a comment being added or
// edited.
func (e *Event) IsComment() bool {
	return e.value.Item == "comment" && (e.value.Verb == "add" || e.value.Verb == "edited")
}

// IsFirstLevelComment reports whether the comment replies directly to
// the post rather than to another comment.
func (e *Event) IsFirstLevelComment() bool {
	return e.IsComment() && (e.value.ParentID == "" || e.value.ParentID == e.value.PostID)
}

// IsMessage is always false for feed changes.
func (e *Event) IsMessage() bool { return false }

// IsText reports whether the change is a comment with text.
func (e *Event) IsText() bool {
	return e.IsComment() && e.value.Message != ""
}

// Text returns the comment text, or "".
func (e *Event) Text() string {
	if !e.IsText() {
		return ""
	}
	return e.value.Message
}

// IsPayload is always false for feed changes.
func (e *Event) IsPayload() bool { return false }

// Payload is always empty for feed changes.
func (e *Event) Payload() string { return "" }

// SenderID returns the author's id, or "".
func (e *Event) SenderID() string {
	if e.value.From == nil {
		return ""
	}
	return e.value.From.ID
}
