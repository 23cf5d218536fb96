package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// PlatformName is the connector's discriminant literal.
const PlatformName = "line"

// signatureHeader carries the base64 HMAC the platform signs each
// delivery with.
const signatureHeader = "X-Line-Signature"

// defaultMaxEvents caps one webhook batch, matching the platform limit.
const defaultMaxEvents = 100

// ConnectorConfig holds the dependencies for a Connector
type ConnectorConfig struct {
	ChannelSecret string
	ChannelToken  string

	// MaxEventsPerWebhook truncates oversized batches. Zero means the
	// platform default.
	MaxEventsPerWebhook int

	Logger  *logger.Logger
	Metrics *metrics.Metrics // optional
}

// Connector adapts LINE webhook requests to the dispatch pipeline.
type Connector struct {
	channelSecret string
	client        *messaging_api.MessagingApiAPI
	maxEvents     int
	log           *logger.Logger
	metrics       *metrics.Metrics
}

// NewConnector creates a LINE connector.
func NewConnector(cfg ConnectorConfig) (*Connector, error) {
	client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	maxEvents := cfg.MaxEventsPerWebhook
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}

	return &Connector{
		channelSecret: cfg.ChannelSecret,
		client:        client,
		maxEvents:     maxEvents,
		log:           cfg.Logger.WithModule("line"),
		metrics:       cfg.Metrics,
	}, nil
}

// Platform returns "line".
func (c *Connector) Platform() string { return PlatformName }

// Client returns the messaging API client.
func (c *Connector) Client() *messaging_api.MessagingApiAPI { return c.client }

// Preprocess verifies the delivery signature before any parsing.
func (c *Connector) Preprocess(_ context.Context, req *bot.Request) bot.PreprocessResult {
	if !ValidateSignature(c.channelSecret, req.Header(signatureHeader), req.RawBody) {
		c.log.Warn("invalid webhook signature")
		if c.metrics != nil {
			c.metrics.RecordVerificationFailure(PlatformName, "bad_signature")
		}
		return bot.ShortCircuit(http.StatusBadRequest, []byte(`{"error":"invalid signature"}`))
	}
	return bot.Next()
}

// ValidateSignature checks the base64 HMAC-SHA256 of the raw body
// against the delivery header.
func ValidateSignature(channelSecret, signature string, body []byte) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

// MapRequestToEvents parses the webhook batch. Oversized batches are
// truncated to the platform limit; a garbled body yields no events.
func (c *Connector) MapRequestToEvents(req *bot.Request) []bot.Event {
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(req.RawBody, &cb); err != nil {
		c.log.WithError(err).Warn("failed to parse webhook body")
		return nil
	}

	raw := cb.Events
	if len(raw) > c.maxEvents {
		c.log.WithField("event_count", len(raw)).
			WithField("limit", c.maxEvents).
			Warn("too many events in webhook batch; truncating")
		raw = raw[:c.maxEvents]
	}

	events := make([]bot.Event, 0, len(raw))
	for _, ev := range raw {
		events = append(events, NewEvent(ev))
	}
	return events
}

// UniqueSessionKey keys sessions by conversation: the user id in
// one-on-one chats, the group or room id otherwise.
func (c *Connector) UniqueSessionKey(_ context.Context, event bot.Event) (string, error) {
	e, ok := event.(*Event)
	if !ok {
		return "", bot.ErrWrongEventType
	}
	id := e.ChatID()
	if id == "" {
		return "", nil
	}
	return session.Key(PlatformName, id), nil
}

// UpdateSession records nothing beyond the enriched user; webhook
// events carry no inline profile.
func (c *Connector) UpdateSession(_ context.Context, _ *session.Session, _ bot.Event) error {
	return nil
}

// UserProfile fetches the sender's profile for one-on-one chats. Group
// and room events skip enrichment since member profiles need consent
// the bot may not have.
func (c *Connector) UserProfile(_ context.Context, event bot.Event) (map[string]any, error) {
	e, ok := event.(*Event)
	if !ok || !e.IsPersonalChat() || e.SenderID() == "" {
		return nil, nil
	}

	profile, err := c.client.GetProfile(e.SenderID())
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return map[string]any{
		"display_name":   profile.DisplayName,
		"picture_url":    profile.PictureUrl,
		"status_message": profile.StatusMessage,
		"language":       profile.Language,
	}, nil
}

// CreateContext builds the per-event context.
func (c *Connector) CreateContext(_ context.Context, event bot.Event, sess *session.Session, key string) (bot.Context, error) {
	e, ok := event.(*Event)
	if !ok {
		return nil, bot.ErrWrongEventType
	}
	return &Context{
		event:   e,
		sess:    sess,
		key:     key,
		client:  c.client,
		log:     c.log,
		metrics: c.metrics,
	}, nil
}
