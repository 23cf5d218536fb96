package messenger

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
func (c routeContext) SessionKey() string                     { return "messenger:psid-1" }
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

func TestAccountLinkingRoutes(t *testing.T) {
	var hits []string
	h := router.New(
		AccountLinkingLinked(mark("linked", &hits)),
		AccountLinkingUnlinked(mark("unlinked", &hits)),
		OnAccountLinking(mark("other-status", &hits)),
		router.Any(mark("fallback", &hits)),
	)

	linking := func(status string) *Event {
		return event(Messaging{
			Sender:         &Party{ID: "psid-1"},
			AccountLinking: &AccountLinking{Status: status},
		})
	}

	dispatch(t, h, linking("linked"))
	dispatch(t, h, linking("unlinked"))
	dispatch(t, h, linking("pending"))
	dispatch(t, h, event(Messaging{
		Sender:  &Party{ID: "psid-1"},
		Message: &MessagePayload{MID: "m1", Text: "hi"},
	}))

	want := []string{"linked", "unlinked", "other-status", "fallback"}
	if len(hits) != len(want) {
		t.Fatalf("hits = %v, want %v", hits, want)
	}
	for i := range want {
		if hits[i] != want[i] {
			t.Fatalf("hits = %v, want %v", hits, want)
		}
	}
}

func TestReceiptAndReferralRoutes(t *testing.T) {
	var hits []string
	h := router.New(
		Delivery(mark("delivery", &hits)),
		Read(mark("read", &hits)),
		OnReferral(mark("referral", &hits)),
		Echo(mark("echo", &hits)),
		Message(mark("message", &hits)),
	)

	dispatch(t, h, event(Messaging{Delivery: map[string]any{"watermark": float64(1)}}))
	dispatch(t, h, event(Messaging{Read: map[string]any{"watermark": float64(2)}}))
	dispatch(t, h, event(Messaging{Referral: &Referral{Ref: "AD_1"}}))
	dispatch(t, h, event(Messaging{Message: &MessagePayload{MID: "m1", Text: "own send", IsEcho: true}}))
	dispatch(t, h, event(Messaging{Message: &MessagePayload{MID: "m2", Text: "hello"}}))

	want := []string{"delivery", "read", "referral", "echo", "message"}
	if len(hits) != len(want) {
		t.Fatalf("hits = %v, want %v", hits, want)
	}
	for i := range want {
		if hits[i] != want[i] {
			t.Fatalf("hits = %v, want %v", hits, want)
		}
	}
}

func TestStandbyRoute(t *testing.T) {
	var hits []string
	h := router.New(
		Standby(mark("standby", &hits)),
		Message(mark("message", &hits)),
	)

	standby := NewEvent(&Messaging{
		Sender:  &Party{ID: "psid-1"},
		Message: &MessagePayload{MID: "m1", Text: "handled elsewhere"},
	}, "page-1", true, time.Now())

	dispatch(t, h, standby)

	if len(hits) != 1 || hits[0] != "standby" {
		t.Errorf("hits = %v, want [standby]", hits)
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
		Message(mark("messenger", &hits)),
		OnPostback(mark("postback", &hits)),
		router.Any(mark("fallback", &hits)),
	)

	dispatch(t, h, foreignEvent{})

	if len(hits) != 1 || hits[0] != "fallback" {
		t.Errorf("hits = %v, want [fallback]", hits)
	}
}

func TestQuickReplyRoutePrecedence(t *testing.T) {
	var hits []string
	h := router.New(
		OnQuickReply(mark("quick-reply", &hits)),
		Message(mark("message", &hits)),
	)

	dispatch(t, h, event(Messaging{
		Sender: &Party{ID: "psid-1"},
		Message: &MessagePayload{
			MID:        "m1",
			Text:       "Yes",
			QuickReply: &QuickReply{Payload: "CONFIRM"},
		},
	}))

	if len(hits) != 1 || hits[0] != "quick-reply" {
		t.Errorf("hits = %v, want [quick-reply]", hits)
	}
}
