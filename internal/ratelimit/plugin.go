package ratelimit

import (
	"context"
	"errors"

	"github.com/duskbyte/courier-go/internal/bot"
)

// ErrLimited is returned by the plugin when an event exceeds its
// sender's rate. Error handlers should treat it as a drop, not a fault.
var ErrLimited = errors.New("rate limit exceeded")

// Plugin throttles dispatch per session key. Events from unidentified
// senders pass through unthrottled.
func Plugin(kl *KeyedLimiter) bot.Plugin {
	return func(_ context.Context, c bot.Context) error {
		if !kl.Allow(c.SessionKey()) {
			return ErrLimited
		}
		return nil
	}
}
