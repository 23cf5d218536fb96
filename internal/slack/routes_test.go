package slack

import (
	"context"
	"testing"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/router"
	"github.com/duskbyte/courier-go/internal/session"
)

// routeContext is the minimal dispatch context the route predicates
// need.
type routeContext struct {
	event bot.Event
}

func (c routeContext) Platform() string                       { return PlatformName }
func (c routeContext) Event() bot.Event                       { return c.event }
func (c routeContext) Session() *session.Session              { return session.New() }
func (c routeContext) SessionKey() string                     { return "slack:C1" }
func (c routeContext) SendText(context.Context, string) error { return nil }

func mark(name string, hits *[]string) bot.Handler {
	return func(context.Context, bot.Context) (bot.Handler, error) {
		*hits = append(*hits, name)
		return nil, nil
	}
}

func dispatch(t *testing.T, h bot.Handler, event bot.Event) {
	t.Helper()
	if _, err := h(context.Background(), routeContext{event: event}); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}
}

func TestMessageRouteSkipsBotMessages(t *testing.T) {
	var hits []string
	h := router.New(
		Message(mark("message", &hits)),
		router.Any(mark("fallback", &hits)),
	)

	dispatch(t, h, NewEvent(&InnerEvent{Type: "message", User: "U1", Text: "hi"}, time.Now()))
	dispatch(t, h, NewEvent(&InnerEvent{Type: "message", BotID: "B1", Text: "beep"}, time.Now()))

	if len(hits) != 2 || hits[0] != "message" || hits[1] != "fallback" {
		t.Errorf("hits = %v, want [message fallback]", hits)
	}
}

func TestEventTypeRoute(t *testing.T) {
	var hits []string
	h := router.New(
		EventType("reaction_added", mark("reaction", &hits)),
		EventType("app_mention", mark("mention", &hits)),
		router.Any(mark("fallback", &hits)),
	)

	dispatch(t, h, NewEvent(&InnerEvent{Type: "app_mention", User: "U1"}, time.Now()))
	dispatch(t, h, NewEvent(&InnerEvent{Type: "reaction_added", User: "U1"}, time.Now()))

	if len(hits) != 2 || hits[0] != "mention" || hits[1] != "reaction" {
		t.Errorf("hits = %v, want [mention reaction]", hits)
	}
}

func TestCommandRouteMatchesByName(t *testing.T) {
	var hits []string
	h := router.New(
		Command("deploy", mark("deploy", &hits)),
		Command("/status", mark("status", &hits)),
		router.Any(mark("fallback", &hits)),
	)

	dispatch(t, h, NewCommandEvent(&SlashCommand{Command: "/deploy", Text: "prod"}, time.Now()))
	dispatch(t, h, NewCommandEvent(&SlashCommand{Command: "/status"}, time.Now()))
	dispatch(t, h, NewCommandEvent(&SlashCommand{Command: "/rollback"}, time.Now()))

	if len(hits) != 3 || hits[0] != "deploy" || hits[1] != "status" || hits[2] != "fallback" {
		t.Errorf("hits = %v, want [deploy status fallback]", hits)
	}
}

func TestInteractionRoutesDistinguishTypes(t *testing.T) {
	var hits []string
	h := router.New(
		ViewSubmission(mark("view", &hits)),
		InteractiveMessage(mark("legacy", &hits)),
		BlockActions(mark("blocks", &hits)),
	)

	dispatch(t, h, NewInteractiveEvent(&Interactive{Type: "block_actions"}, time.Now()))
	dispatch(t, h, NewInteractiveEvent(&Interactive{Type: "view_submission"}, time.Now()))
	dispatch(t, h, NewInteractiveEvent(&Interactive{Type: "interactive_message"}, time.Now()))

	if len(hits) != 3 || hits[0] != "blocks" || hits[1] != "view" || hits[2] != "legacy" {
		t.Errorf("hits = %v, want [blocks view legacy]", hits)
	}
}

// foreignEvent stands in for another platform's event type in a mixed
// route table.
type foreignEvent struct{}

func (foreignEvent) RawEvent() any        { return nil }
func (foreignEvent) Timestamp() time.Time { return time.Time{} }
func (foreignEvent) IsMessage() bool      { return true }
func (foreignEvent) IsText() bool         { return true }
func (foreignEvent) Text() string         { return "hi" }
func (foreignEvent) IsPayload() bool      { return false }
func (foreignEvent) Payload() string      { return "" }
func (foreignEvent) SenderID() string     { return "X1" }

func TestRoutesIgnoreForeignEvents(t *testing.T) {
	var hits []string
	h := router.New(
		Message(mark("slack", &hits)),
		router.Any(mark("fallback", &hits)),
	)

	dispatch(t, h, foreignEvent{})

	if len(hits) != 1 || hits[0] != "fallback" {
		t.Errorf("hits = %v, want [fallback]", hits)
	}
}

func TestCommandAccessorsAreNullSafe(t *testing.T) {
	message := NewEvent(&InnerEvent{Type: "message", Text: "/deploy"}, time.Now())

	if message.IsCommand() {
		t.Error("plain message must not classify as slash command")
	}
	if message.Command() != "" || message.CommandArgs() != "" {
		t.Error("command accessors must yield empty strings for non-commands")
	}
	if message.IsViewSubmission() || message.IsInteractiveMessage() || message.IsBlockActions() {
		t.Error("inner events must not classify as interactions")
	}
}
