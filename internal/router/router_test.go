package router

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/session"
)

type testEvent struct {
	text    string
	payload string
}

func (e testEvent) RawEvent() any        { return nil }
func (e testEvent) Timestamp() time.Time { return time.Time{} }
func (e testEvent) IsMessage() bool      { return e.text != "" }
func (e testEvent) IsText() bool         { return e.text != "" }
func (e testEvent) Text() string         { return e.text }
func (e testEvent) IsPayload() bool      { return e.payload != "" }
func (e testEvent) Payload() string      { return e.payload }
func (e testEvent) SenderID() string     { return "U1" }

type testContext struct {
	platform string
	event    testEvent
}

func (c testContext) Platform() string                          { return c.platform }
func (c testContext) Event() bot.Event                          { return c.event }
func (c testContext) Session() *session.Session                 { return session.New() }
func (c testContext) SessionKey() string                        { return "test:U1" }
func (c testContext) SendText(context.Context, string) error    { return nil }

func textContext(text string) testContext {
	return testContext{platform: "test", event: testEvent{text: text}}
}

func run(t *testing.T, h bot.Handler, c bot.Context) {
	t.Helper()
	next, err := h(context.Background(), c)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	for next != nil {
		next, err = next(context.Background(), c)
		if err != nil {
			t.Fatalf("continuation error: %v", err)
		}
	}
}

func record(name string, order *[]string) bot.Handler {
	return func(context.Context, bot.Context) (bot.Handler, error) {
		*order = append(*order, name)
		return nil, nil
	}
}

func TestFirstMatchWins(t *testing.T) {
	var order []string
	always := func(bot.Context) bool { return true }

	h := New(
		NewRoute(always, record("first", &order)),
		NewRoute(always, record("second", &order)),
		Any(record("fallback", &order)),
	)

	run(t, h, textContext("hello"))

	if len(order) != 1 || order[0] != "first" {
		t.Errorf("order = %v, want [first]", order)
	}
}

func TestFallbackMatchesWhenNothingElseDoes(t *testing.T) {
	var order []string

	h := New(
		Text("ping", record("ping", &order)),
		Any(record("fallback", &order)),
	)

	run(t, h, textContext("pong"))

	if len(order) != 1 || order[0] != "fallback" {
		t.Errorf("order = %v, want [fallback]", order)
	}
}

func TestNoMatchDoesNothing(t *testing.T) {
	var order []string

	h := New(
		Text("ping", record("ping", &order)),
	)

	run(t, h, textContext("pong"))

	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
}

func TestTextRoutes(t *testing.T) {
	tests := []struct {
		name   string
		match  string
		text   string
		expect bool
	}{
		{"exact match", "ping", "ping", true},
		{"mismatch", "ping", "pong", false},
		{"wildcard matches any text", "*", "whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order []string
			h := New(Text(tt.match, record("hit", &order)))
			run(t, h, textContext(tt.text))
			if (len(order) == 1) != tt.expect {
				t.Errorf("matched = %v, want %v", len(order) == 1, tt.expect)
			}
		})
	}
}

func TestTextRouteIgnoresPayloadEvents(t *testing.T) {
	var order []string
	h := New(Text("*", record("hit", &order)))

	run(t, h, testContext{platform: "test", event: testEvent{payload: "ACTION"}})

	if len(order) != 0 {
		t.Errorf("text route must not match payload events, got %v", order)
	}
}

func TestTextRegexp(t *testing.T) {
	var order []string
	h := New(TextRegexp(regexp.MustCompile(`(?i)^hello`), record("hit", &order)))

	run(t, h, textContext("Hello there"))

	if len(order) != 1 {
		t.Errorf("expected regexp match, got %v", order)
	}
}

func TestPayloadRoute(t *testing.T) {
	var order []string
	h := New(
		Payload("SUBSCRIBE", record("subscribe", &order)),
		Any(record("fallback", &order)),
	)

	run(t, h, testContext{platform: "test", event: testEvent{payload: "SUBSCRIBE"}})

	if len(order) != 1 || order[0] != "subscribe" {
		t.Errorf("order = %v, want [subscribe]", order)
	}
}

func TestCommandRoute(t *testing.T) {
	tests := []struct {
		text   string
		expect bool
	}{
		{"/start", true},
		{"/start now", true},
		{"/start@mybot", true},
		{"/started", false},
		{"start", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var order []string
			h := New(Command("start", record("hit", &order)))
			run(t, h, textContext(tt.text))
			if (len(order) == 1) != tt.expect {
				t.Errorf("matched = %v, want %v", len(order) == 1, tt.expect)
			}
		})
	}
}

func TestPlatformPredicate(t *testing.T) {
	var order []string
	textAny := func(c bot.Context) bool { return c.Event().IsText() }

	h := New(
		NewRoute(Platform("slack", textAny), record("slack", &order)),
		Any(record("fallback", &order)),
	)

	run(t, h, testContext{platform: "telegram", event: testEvent{text: "hi"}})
	run(t, h, testContext{platform: "slack", event: testEvent{text: "hi"}})

	if len(order) != 2 || order[0] != "fallback" || order[1] != "slack" {
		t.Errorf("order = %v, want [fallback slack]", order)
	}
}

func TestOnWrapsRouteWithPlatformCheck(t *testing.T) {
	var order []string
	h := New(
		On("line", Text("*", record("line-text", &order))),
		Any(record("fallback", &order)),
	)

	run(t, h, testContext{platform: "slack", event: testEvent{text: "hi"}})

	if len(order) != 1 || order[0] != "fallback" {
		t.Errorf("order = %v, want [fallback]", order)
	}
}

func TestCombinators(t *testing.T) {
	isText := func(c bot.Context) bool { return c.Event().IsText() }
	isSlack := func(c bot.Context) bool { return c.Platform() == "slack" }

	slackText := And(isSlack, isText)
	if !slackText(testContext{platform: "slack", event: testEvent{text: "x"}}) {
		t.Error("And should match when all predicates match")
	}
	if slackText(testContext{platform: "line", event: testEvent{text: "x"}}) {
		t.Error("And should fail when one predicate fails")
	}

	either := Or(isSlack, isText)
	if !either(testContext{platform: "line", event: testEvent{text: "x"}}) {
		t.Error("Or should match when one predicate matches")
	}
	if either(testContext{platform: "line", event: testEvent{payload: "p"}}) {
		t.Error("Or should fail when no predicate matches")
	}

	if Not(isSlack)(testContext{platform: "slack"}) {
		t.Error("Not should invert the predicate")
	}
}

func TestRouteActionContinuation(t *testing.T) {
	var order []string
	h := New(
		Text("*", func(context.Context, bot.Context) (bot.Handler, error) {
			order = append(order, "first")
			return record("continuation", &order), nil
		}),
	)

	run(t, h, textContext("hello"))

	if len(order) != 2 || order[1] != "continuation" {
		t.Errorf("order = %v, want [first continuation]", order)
	}
}
