package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// PlatformName is the connector's discriminant literal.
const PlatformName = "slack"

const (
	signatureHeader = "X-Slack-Signature"
	timestampHeader = "X-Slack-Request-Timestamp"

	// signatureVersion prefixes the v0 signing base string.
	signatureVersion = "v0"

	// timestampTolerance rejects replayed requests with stale timestamps.
	timestampTolerance = 5 * time.Minute
)

// ConnectorConfig holds the dependencies for a Connector
type ConnectorConfig struct {
	AccessToken       string
	SigningSecret     string
	VerificationToken string // legacy fallback when SigningSecret is unset
	Logger            *logger.Logger
	Metrics           *metrics.Metrics // optional
}

// Connector adapts Slack Events API requests to the dispatch pipeline.
type Connector struct {
	client            *Client
	signingSecret     string
	verificationToken string
	log               *logger.Logger
	metrics           *metrics.Metrics

	now func() time.Time
}

// NewConnector creates a Slack connector.
func NewConnector(cfg ConnectorConfig) *Connector {
	client := NewClient(cfg.AccessToken)
	if cfg.Metrics != nil {
		client.SetMetrics(cfg.Metrics)
	}
	return &Connector{
		client:            client,
		signingSecret:     cfg.SigningSecret,
		verificationToken: cfg.VerificationToken,
		log:               cfg.Logger.WithModule("slack"),
		metrics:           cfg.Metrics,
		now:               time.Now,
	}
}

// Platform returns "slack".
func (c *Connector) Platform() string { return PlatformName }

// Client returns the connector's API client.
func (c *Connector) Client() *Client { return c.client }

// Preprocess answers url_verification challenges and verifies request
// authenticity, preferring the v0 signing secret over the legacy
// verification token.
func (c *Connector) Preprocess(_ context.Context, req *bot.Request) bot.PreprocessResult {
	if challenge, ok := urlVerification(req.Body); ok {
		return bot.ShortCircuit(http.StatusOK, map[string]any{"challenge": challenge})
	}

	if c.signingSecret != "" {
		return c.verifySignature(req)
	}
	if c.verificationToken != "" {
		return c.verifyToken(req)
	}
	return bot.Next()
}

func urlVerification(body map[string]any) (string, bool) {
	if body == nil || body["type"] != "url_verification" {
		return "", false
	}
	challenge, _ := body["challenge"].(string)
	return challenge, true
}

// verifySignature checks the v0 HMAC signature over the raw body.
func (c *Connector) verifySignature(req *bot.Request) bot.PreprocessResult {
	ts := req.Header(timestampHeader)
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return c.reject("timestamp", "missing or malformed request timestamp")
	}

	age := c.now().Sub(time.Unix(seconds, 0))
	if age > timestampTolerance || age < -timestampTolerance {
		return c.reject("timestamp", "request timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.signingSecret))
	mac.Write([]byte(signatureVersion + ":" + ts + ":"))
	mac.Write(req.RawBody)
	expected := signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(req.Header(signatureHeader))) != 1 {
		return c.reject("signature", "signature mismatch")
	}
	return bot.Next()
}

// verifyToken checks the legacy verification token in the body.
func (c *Connector) verifyToken(req *bot.Request) bot.PreprocessResult {
	token, _ := req.Body["token"].(string)
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.verificationToken)) != 1 {
		return c.reject("token", "verification token mismatch")
	}
	return bot.Next()
}

func (c *Connector) reject(reason, message string) bot.PreprocessResult {
	if c.metrics != nil {
		c.metrics.RecordVerificationFailure(PlatformName, reason)
	}
	c.log.WithField("reason", reason).Warn("request verification failed")
	return bot.ShortCircuit(http.StatusBadRequest, map[string]any{"error": message})
}

// envelope is the outer Events API document.
type envelope struct {
	Type  string      `json:"type"`
	Event *InnerEvent `json:"event,omitempty"`
}

// MapRequestToEvents parses the webhook body into events. Bot-authored
// messages are dropped so the bot never answers itself. Interaction
// payloads and slash commands arrive form-encoded rather than as JSON.
func (c *Connector) MapRequestToEvents(req *bot.Request) []bot.Event {
	if req.Body == nil && len(req.RawBody) > 0 {
		return c.mapFormEvents(req.RawBody)
	}

	switch t, _ := req.Body["type"].(string); t {
	case "block_actions", "interactive_message", "view_submission":
		return c.mapInteractive(req.RawBody)
	}

	var env envelope
	if err := json.Unmarshal(req.RawBody, &env); err != nil {
		c.log.WithError(err).Warn("failed to parse event callback")
		return nil
	}
	if env.Type != "event_callback" || env.Event == nil {
		return nil
	}

	event := NewEvent(env.Event, time.Now())
	if event.IsBotMessage() {
		return nil
	}
	return []bot.Event{event}
}

func (c *Connector) mapInteractive(raw []byte) []bot.Event {
	var interactive Interactive
	if err := json.Unmarshal(raw, &interactive); err != nil {
		c.log.WithError(err).Warn("failed to parse interaction payload")
		return nil
	}
	return []bot.Event{NewInteractiveEvent(&interactive, time.Now())}
}

// mapFormEvents handles the form-encoded transports: interactions
// wrapped in a payload field and slash command invocations.
func (c *Connector) mapFormEvents(raw []byte) []bot.Event {
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		c.log.WithError(err).Warn("failed to parse form body")
		return nil
	}

	if payload := form.Get("payload"); payload != "" {
		return c.mapInteractive([]byte(payload))
	}

	if cmd := form.Get("command"); cmd != "" {
		command := &SlashCommand{
			Command:     cmd,
			Text:        form.Get("text"),
			UserID:      form.Get("user_id"),
			ChannelID:   form.Get("channel_id"),
			ResponseURL: form.Get("response_url"),
			TriggerID:   form.Get("trigger_id"),
		}
		return []bot.Event{NewCommandEvent(command, time.Now())}
	}
	return nil
}

// UniqueSessionKey partitions sessions by channel.
func (c *Connector) UniqueSessionKey(_ context.Context, event bot.Event) (string, error) {
	e, ok := event.(*Event)
	if !ok {
		return "", nil
	}
	channel := e.ChannelID()
	if channel == "" {
		return "", nil
	}
	return session.Key(PlatformName, channel), nil
}

// UpdateSession is a no-op for Slack: events carry only a user id, the
// profile comes from the users.info enrichment fetch.
func (c *Connector) UpdateSession(_ context.Context, _ *session.Session, _ bot.Event) error {
	return nil
}

// UserProfile fetches the sender's profile from the Web API.
func (c *Connector) UserProfile(ctx context.Context, event bot.Event) (map[string]any, error) {
	e, ok := event.(*Event)
	if !ok || e.SenderID() == "" {
		return nil, nil
	}
	return c.client.UserInfo(ctx, e.SenderID())
}

// CreateContext builds the Slack handler facade.
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
