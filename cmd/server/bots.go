// Package main provides the webhook server entry point.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/config"
	"github.com/duskbyte/courier-go/internal/facebook"
	"github.com/duskbyte/courier-go/internal/kvcache"
	"github.com/duskbyte/courier-go/internal/line"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/messenger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/ratelimit"
	"github.com/duskbyte/courier-go/internal/router"
	"github.com/duskbyte/courier-go/internal/sentry"
	"github.com/duskbyte/courier-go/internal/session"
	"github.com/duskbyte/courier-go/internal/slack"
	"github.com/duskbyte/courier-go/internal/telegram"
)

// eventConcurrency bounds parallel event processing within one webhook
// batch.
const eventConcurrency = 4

// Per-sender throttle: a burst of 15 events, refilled one per second.
const (
	senderBurst      = 15
	senderRefillRate = 1
)

// platformBot pairs a mounted bot with its route segment.
type platformBot struct {
	name string
	bot  *bot.Bot
}

// buildBots constructs one bot per enabled connector, all sharing the
// session store.
func buildBots(cfg *config.Config, store *session.Store, limiter *ratelimit.KeyedLimiter, log *logger.Logger, m *metrics.Metrics) ([]*platformBot, error) {
	var bots []*platformBot

	mount := func(name string, connector bot.Connector) {
		b := bot.New(bot.Config{
			Connector:   connector,
			Store:       store,
			Logger:      log,
			Metrics:     m,
			Concurrency: eventConcurrency,
		})
		b.Use(ratelimit.Plugin(limiter))
		b.OnEvent(defaultHandler())
		b.OnError(func(ctx context.Context, err error, c bot.Context) {
			entry := log.WithModule(name).WithError(err)
			if c != nil {
				entry = entry.WithField("session_key", c.SessionKey())
			}
			if errors.Is(err, ratelimit.ErrLimited) {
				entry.WarnContext(ctx, "Event dropped by rate limiter")
				return
			}
			entry.ErrorContext(ctx, "Event processing failed")
			if sentry.IsEnabled() {
				sentry.CaptureExceptionWithContext(ctx, err)
			}
		})
		bots = append(bots, &platformBot{name: name, bot: b})
	}

	if cfg.Line.Enabled() {
		connector, err := line.NewConnector(line.ConnectorConfig{
			ChannelSecret: cfg.Line.ChannelSecret,
			ChannelToken:  cfg.Line.AccessToken,
			Logger:        log,
			Metrics:       m,
		})
		if err != nil {
			return nil, fmt.Errorf("line connector: %w", err)
		}
		mount(line.PlatformName, connector)
	}

	if cfg.Slack.Enabled() {
		mount(slack.PlatformName, slack.NewConnector(slack.ConnectorConfig{
			AccessToken:       cfg.Slack.AccessToken,
			SigningSecret:     cfg.Slack.SigningSecret,
			VerificationToken: cfg.Slack.VerificationToken,
			Logger:            log,
			Metrics:           m,
		}))
	}

	if cfg.Telegram.Enabled() {
		mount(telegram.PlatformName, telegram.NewConnector(telegram.ConnectorConfig{
			AccessToken: cfg.Telegram.AccessToken,
			SecretToken: cfg.Telegram.SecretToken,
			Logger:      log,
			Metrics:     m,
		}))
	}

	if cfg.Messenger.Enabled() {
		messengerConnector := messenger.NewConnector(messenger.ConnectorConfig{
			AppSecret:   cfg.Messenger.AppSecret,
			VerifyToken: cfg.Messenger.VerifyToken,
			PageToken:   cfg.Messenger.PageToken,
			PageTokens:  cfg.Messenger.PageTokens,
			Fields:      cfg.Messenger.Fields,
			Logger:      log,
			Metrics:     m,
		})
		mount(messenger.PlatformName, messengerConnector)

		// The facebook connector rides on the messenger credentials and
		// adds page feed comment handling.
		cache, err := kvcache.New(threadCachePath(cfg), 0)
		if err != nil {
			return nil, fmt.Errorf("thread cache: %w", err)
		}
		mount(facebook.PlatformName, facebook.NewConnector(facebook.ConnectorConfig{
			Messenger: messengerConnector,
			Cache:     cache,
			Logger:    log,
			Metrics:   m,
		}))
	}

	return bots, nil
}

// defaultHandler is the built-in conversation: a small command router
// over a stateful echo. Deployments embedding this server replace it
// with their own router.
func defaultHandler() bot.Handler {
	return router.New(
		router.Command("/start", greetHandler),
		router.Command("/help", helpHandler),
		router.Payload("GET_STARTED", greetHandler),
		router.Any(echoHandler),
	)
}

func greetHandler(ctx context.Context, c bot.Context) (bot.Handler, error) {
	name := ""
	if user := c.Session().User; user != nil {
		if n, ok := user.Profile["display_name"].(string); ok {
			name = n
		} else if n, ok := user.Profile["first_name"].(string); ok {
			name = n
		}
	}
	greeting := "Hello! Send me a message and I will echo it back."
	if name != "" {
		greeting = fmt.Sprintf("Hello %s! Send me a message and I will echo it back.", name)
	}
	return nil, c.SendText(ctx, greeting)
}

func helpHandler(ctx context.Context, c bot.Context) (bot.Handler, error) {
	return nil, c.SendText(ctx, "Commands: /start greets you, /help shows this text. Anything else is echoed.")
}

func echoHandler(ctx context.Context, c bot.Context) (bot.Handler, error) {
	event := c.Event()
	if !event.IsText() {
		return nil, nil
	}

	count := 1
	if prev, ok := c.Session().State["message_count"].(float64); ok {
		count = int(prev) + 1
	} else if prev, ok := c.Session().State["message_count"].(int); ok {
		count = prev + 1
	}
	c.Session().State["message_count"] = count

	return nil, c.SendText(ctx, fmt.Sprintf("#%d: %s", count, event.Text()))
}
