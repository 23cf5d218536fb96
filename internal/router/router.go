// Package router builds a dispatchable handler from an ordered list of
// (predicate, action) routes.
//
// Dispatch evaluates predicates in declaration order against the current
// context and invokes the first match only. A catch-all route matches
// unconditionally and should be declared last; the router does not
// enforce ordering, so a catch-all declared first shadows everything
// after it.
package router

import (
	"context"
	"regexp"
	"strings"

	"github.com/duskbyte/courier-go/internal/bot"
)

// Predicate decides whether a route matches the current context.
// Predicates are pure and side-effect-free.
type Predicate func(c bot.Context) bool

// Route pairs a predicate with the action it dispatches to.
type Route struct {
	Predicate Predicate
	Action    bot.Handler
}

// New builds a first-match handler from the given routes. When no route
// matches, the returned handler does nothing.
func New(routes ...Route) bot.Handler {
	return func(ctx context.Context, c bot.Context) (bot.Handler, error) {
		for _, r := range routes {
			if r.Predicate(c) {
				return r.Action(ctx, c)
			}
		}
		return nil, nil
	}
}

// NewRoute pairs a predicate with an action.
func NewRoute(pred Predicate, action bot.Handler) Route {
	return Route{Predicate: pred, Action: action}
}

// Any matches every context. Declare it last as the fallback route.
func Any(action bot.Handler) Route {
	return Route{
		Predicate: func(bot.Context) bool { return true },
		Action:    action,
	}
}

// Text matches text events whose text equals match, or any text event
// when match is "*".
func Text(match string, action bot.Handler) Route {
	return Route{
		Predicate: func(c bot.Context) bool {
			e := c.Event()
			if !e.IsText() {
				return false
			}
			return match == "*" || e.Text() == match
		},
		Action: action,
	}
}

// TextRegexp matches text events whose text matches the pattern.
func TextRegexp(re *regexp.Regexp, action bot.Handler) Route {
	return Route{
		Predicate: func(c bot.Context) bool {
			e := c.Event()
			return e.IsText() && re.MatchString(e.Text())
		},
		Action: action,
	}
}

// Payload matches payload events whose payload equals match, or any
// payload event when match is "*".
func Payload(match string, action bot.Handler) Route {
	return Route{
		Predicate: func(c bot.Context) bool {
			e := c.Event()
			if !e.IsPayload() {
				return false
			}
			return match == "*" || e.Payload() == match
		},
		Action: action,
	}
}

// Command matches text events starting with "/name", with or without
// arguments.
func Command(name string, action bot.Handler) Route {
	prefix := "/" + name
	return Route{
		Predicate: func(c bot.Context) bool {
			e := c.Event()
			if !e.IsText() {
				return false
			}
			text := e.Text()
			return text == prefix || strings.HasPrefix(text, prefix+" ") || strings.HasPrefix(text, prefix+"@")
		},
		Action: action,
	}
}

// Platform restricts pred to contexts from the named platform.
func Platform(platform string, pred Predicate) Predicate {
	return func(c bot.Context) bool {
		return c.Platform() == platform && pred(c)
	}
}

// On conjoins a platform check with a route, so platform-specific routes
// can live in one shared table.
func On(platform string, route Route) Route {
	return Route{
		Predicate: Platform(platform, route.Predicate),
		Action:    route.Action,
	}
}

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(c bot.Context) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	}
}

// Or matches when at least one predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(c bot.Context) bool {
		for _, p := range preds {
			if p(c) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(pred Predicate) Predicate {
	return func(c bot.Context) bool {
		return !pred(c)
	}
}
