package messenger

import (
	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/router"
)

// typed pulls the Messenger event out of a routing context. It is nil
// when the context belongs to another platform, so every route below
// degrades to a non-match instead of panicking in mixed-platform
// route tables.
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

// Message matches non-echo user messages.
func Message(action bot.Handler) router.Route {
	return route((*Event).IsMessage, action)
}

// OnPostback matches persistent menu and button postbacks.
func OnPostback(action bot.Handler) router.Route {
	return route((*Event).IsPostback, action)
}

// OnQuickReply matches tapped quick replies.
func OnQuickReply(action bot.Handler) router.Route {
	return route((*Event).IsQuickReply, action)
}

// OnAccountLinking matches any account linking status change.
func OnAccountLinking(action bot.Handler) router.Route {
	return route((*Event).IsAccountLinking, action)
}

// AccountLinkingLinked matches account linking events whose status is
// "linked".
func AccountLinkingLinked(action bot.Handler) router.Route {
	return route(func(e *Event) bool {
		return e.IsAccountLinking() && e.AccountLinkingStatus() == "linked"
	}, action)
}

// AccountLinkingUnlinked matches account linking events whose status is
// "unlinked".
func AccountLinkingUnlinked(action bot.Handler) router.Route {
	return route(func(e *Event) bool {
		return e.IsAccountLinking() && e.AccountLinkingStatus() == "unlinked"
	}, action)
}

// Delivery matches delivery receipts.
func Delivery(action bot.Handler) router.Route {
	return route((*Event).IsDelivery, action)
}

// Read matches read receipts.
func Read(action bot.Handler) router.Route {
	return route((*Event).IsRead, action)
}

// OnReferral matches referral events, standalone or inside a postback.
func OnReferral(action bot.Handler) router.Route {
	return route((*Event).IsReferral, action)
}

// Echo matches echoes of the page's own sends.
func Echo(action bot.Handler) router.Route {
	return route((*Event).IsEcho, action)
}

// Standby matches items delivered on the standby channel.
func Standby(action bot.Handler) router.Route {
	return route((*Event).IsStandby, action)
}
