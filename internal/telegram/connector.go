package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// PlatformName is the connector's discriminant literal.
const PlatformName = "telegram"

// secretTokenHeader carries the webhook secret configured via setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ConnectorConfig holds the dependencies for a Connector
type ConnectorConfig struct {
	AccessToken string
	SecretToken string // optional webhook secret
	Logger      *logger.Logger
	Metrics     *metrics.Metrics // optional
}

// Connector adapts Telegram webhook updates to the dispatch pipeline.
type Connector struct {
	client      *Client
	secretToken string
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewConnector creates a Telegram connector.
func NewConnector(cfg ConnectorConfig) *Connector {
	client := NewClient(cfg.AccessToken)
	if cfg.Metrics != nil {
		client.SetMetrics(cfg.Metrics)
	}
	return &Connector{
		client:      client,
		secretToken: cfg.SecretToken,
		log:         cfg.Logger.WithModule("telegram"),
		metrics:     cfg.Metrics,
	}
}

// Platform returns "telegram".
func (c *Connector) Platform() string { return PlatformName }

// Client returns the connector's API client.
func (c *Connector) Client() *Client { return c.client }

// Preprocess verifies the webhook secret token when one is configured.
func (c *Connector) Preprocess(_ context.Context, req *bot.Request) bot.PreprocessResult {
	if c.secretToken == "" {
		return bot.Next()
	}

	provided := req.Header(secretTokenHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(c.secretToken)) != 1 {
		if c.metrics != nil {
			c.metrics.RecordVerificationFailure(PlatformName, "token")
		}
		return bot.ShortCircuit(http.StatusUnauthorized, map[string]any{
			"error": "invalid secret token",
		})
	}
	return bot.Next()
}

// MapRequestToEvents parses the webhook body into events. Telegram
// delivers exactly one update per request; an unparseable or empty
// update yields no events.
func (c *Connector) MapRequestToEvents(req *bot.Request) []bot.Event {
	var update Update
	if err := json.Unmarshal(req.RawBody, &update); err != nil {
		c.log.WithError(err).Warn("failed to parse update")
		return nil
	}
	if update.Message == nil && update.EditedMessage == nil && update.ChannelPost == nil &&
		update.CallbackQuery == nil && update.Poll == nil && update.PollAnswer == nil {
		return nil
	}
	return []bot.Event{NewEvent(&update, time.Now())}
}

// UniqueSessionKey partitions sessions by chat id. Poll state updates
// carry no chat and are stateless.
func (c *Connector) UniqueSessionKey(_ context.Context, event bot.Event) (string, error) {
	e, ok := event.(*Event)
	if !ok {
		return "", nil
	}
	chatID := e.ChatID()
	if chatID == "" {
		return "", nil
	}
	return session.Key(PlatformName, chatID), nil
}

// UpdateSession merges the sender identity into the session. The update
// itself carries the full user object, so no profile fetch is needed.
func (c *Connector) UpdateSession(_ context.Context, sess *session.Session, event bot.Event) error {
	e, ok := event.(*Event)
	if !ok {
		return nil
	}
	sender := e.Sender()
	if sender == nil {
		return nil
	}

	sess.SetUser(&session.User{
		ID:        e.SenderID(),
		Platform:  PlatformName,
		UpdatedAt: time.Now(),
		Profile: map[string]any{
			"first_name":    sender.FirstName,
			"last_name":     sender.LastName,
			"username":      sender.Username,
			"language_code": sender.Language,
			"is_bot":        sender.IsBot,
		},
	})
	return nil
}

// CreateContext builds the Telegram handler facade.
func (c *Connector) CreateContext(_ context.Context, event bot.Event, sess *session.Session, key string) (bot.Context, error) {
	e, ok := event.(*Event)
	if !ok {
		return nil, bot.ErrWrongEventType
	}
	return &Context{
		event:  e,
		sess:   sess,
		key:    key,
		client: c.client,
	}, nil
}
