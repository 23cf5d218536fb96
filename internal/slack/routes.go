package slack

import (
	"strings"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/router"
)

// typed pulls the Slack event out of a routing context, nil when the
// context belongs to another platform.
func typed(c bot.Context) *Event {
	e, _ := c.Event().(*Event)
	return e
}

func route(pred func(*Event) bool, action bot.Handler) router.Route {
	return router.NewRoute(func(c bot.Context) bool {
		e := typed(c)
		return e != nil && pred(e)
	}, action)
}

// Message matches message events from users, bot messages excluded.
func Message(action bot.Handler) router.Route {
	return route(func(e *Event) bool {
		return e.IsMessage() && !e.IsBotMessage()
	}, action)
}

// EventType matches event_callback events of the given inner type,
// "app_mention" or "reaction_added" for example.
func EventType(eventType string, action bot.Handler) router.Route {
	return route(func(e *Event) bool {
		return e.Inner() != nil && e.Inner().Type == eventType
	}, action)
}

// Command matches slash command invocations by name. The leading slash
// is optional in name.
func Command(name string, action bot.Handler) router.Route {
	want := "/" + strings.TrimPrefix(name, "/")
	return route(func(e *Event) bool {
		return e.IsCommand() && e.Command() == want
	}, action)
}

// BlockActions matches block_actions interactions.
func BlockActions(action bot.Handler) router.Route {
	return route((*Event).IsBlockActions, action)
}

// InteractiveMessage matches legacy interactive_message interactions.
func InteractiveMessage(action bot.Handler) router.Route {
	return route((*Event).IsInteractiveMessage, action)
}

// ViewSubmission matches modal view_submission interactions.
func ViewSubmission(action bot.Handler) router.Route {
	return route((*Event).IsViewSubmission, action)
}
