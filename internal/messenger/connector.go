package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// PlatformName is the connector's discriminant literal.
const PlatformName = "messenger"

// ConnectorConfig holds the dependencies for a Connector
type ConnectorConfig struct {
	AppSecret   string
	VerifyToken string
	PageToken   string            // default page access token
	PageTokens  map[string]string // per-page overrides keyed by page ID
	Fields      []string          // profile fields requested from the Graph API
	Logger      *logger.Logger
	Metrics     *metrics.Metrics // optional
}

// Connector adapts Messenger webhook requests to the dispatch pipeline.
type Connector struct {
	appSecret   string
	verifyToken string
	pageTokens  map[string]string
	fields      []string
	log         *logger.Logger
	metrics     *metrics.Metrics

	defaultClient *Client

	mu      sync.Mutex
	clients map[string]*Client // per-page clients, created on first use
}

// NewConnector creates a Messenger connector.
func NewConnector(cfg ConnectorConfig) *Connector {
	client := NewClient(cfg.PageToken)
	if cfg.Metrics != nil {
		client.SetMetrics(cfg.Metrics)
	}
	return &Connector{
		appSecret:     cfg.AppSecret,
		verifyToken:   cfg.VerifyToken,
		pageTokens:    cfg.PageTokens,
		fields:        cfg.Fields,
		log:           cfg.Logger.WithModule("messenger"),
		metrics:       cfg.Metrics,
		defaultClient: client,
		clients:       make(map[string]*Client),
	}
}

// Platform returns "messenger".
func (c *Connector) Platform() string { return PlatformName }

// Client returns the default page client.
func (c *Connector) Client() *Client { return c.defaultClient }

// ClientForPage returns the client authenticated for a page. Pages
// without a token override fall back to the default client; an unknown
// page with no default logs a warning and still uses the default.
func (c *Connector) ClientForPage(pageID string) *Client {
	token, ok := c.pageTokens[pageID]
	if !ok || token == "" || token == c.defaultClient.Token() {
		if !ok && len(c.pageTokens) > 0 {
			c.log.WithField("page_id", pageID).Warn("no access token mapped for page, using default client")
		}
		return c.defaultClient
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	client, exists := c.clients[pageID]
	if !exists {
		client = NewClient(token)
		client.SetBaseURL(c.defaultClient.baseURL)
		if c.metrics != nil {
			client.SetMetrics(c.metrics)
		}
		c.clients[pageID] = client
	}
	return client
}

// Preprocess answers the GET subscription handshake and verifies the
// app secret signature on event deliveries.
func (c *Connector) Preprocess(_ context.Context, req *bot.Request) bot.PreprocessResult {
	if req.Method == http.MethodGet {
		challenge, ok := VerifyWebhook(c.verifyToken, req.Query)
		if !ok {
			if c.metrics != nil {
				c.metrics.RecordVerificationFailure(PlatformName, "token")
			}
			return bot.ShortCircuit(http.StatusForbidden, map[string]any{"error": "verify token mismatch"})
		}
		return bot.ShortCircuit(http.StatusOK, challenge)
	}

	if !VerifySignature(c.appSecret, req.RawBody, req.Header(SignatureHeader)) {
		if c.metrics != nil {
			c.metrics.RecordVerificationFailure(PlatformName, "signature")
		}
		c.log.Warn("app secret signature mismatch")
		return bot.ShortCircuit(http.StatusBadRequest, map[string]any{"error": "invalid signature"})
	}
	return bot.Next()
}

// ParseWebhook decodes the fan-in document. Shared with the facebook
// package.
func ParseWebhook(rawBody []byte) (*Webhook, error) {
	var hook Webhook
	if err := json.Unmarshal(rawBody, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// MapRequestToEvents flattens every messaging and standby item across
// all entries into events, one per logical item, in delivery order.
// Feed change entries belong to the facebook connector and are skipped.
func (c *Connector) MapRequestToEvents(req *bot.Request) []bot.Event {
	hook, err := ParseWebhook(req.RawBody)
	if err != nil {
		c.log.WithError(err).Warn("failed to parse webhook body")
		return nil
	}
	if hook.Object != "page" {
		return nil
	}

	now := time.Now()
	var events []bot.Event
	for _, entry := range hook.Entry {
		for i := range entry.Messaging {
			events = append(events, NewEvent(&entry.Messaging[i], entry.ID, false, now))
		}
		for i := range entry.Standby {
			events = append(events, NewEvent(&entry.Standby[i], entry.ID, true, now))
		}
	}
	return events
}

// UniqueSessionKey partitions sessions by sender PSID.
func (c *Connector) UniqueSessionKey(_ context.Context, event bot.Event) (string, error) {
	e, ok := event.(*Event)
	if !ok || e.SenderID() == "" {
		return "", nil
	}
	return session.Key(PlatformName, e.SenderID()), nil
}

// UpdateSession records the receiving page. The user profile comes from
// the Graph API enrichment fetch.
func (c *Connector) UpdateSession(_ context.Context, sess *session.Session, event bot.Event) error {
	e, ok := event.(*Event)
	if !ok {
		return nil
	}
	if e.PageID() != "" {
		sess.SetPage(&session.Page{ID: e.PageID(), UpdatedAt: time.Now()})
	}
	return nil
}

// UserProfile fetches the sender's profile fields for the receiving
// page's client.
func (c *Connector) UserProfile(ctx context.Context, event bot.Event) (map[string]any, error) {
	e, ok := event.(*Event)
	if !ok || e.SenderID() == "" {
		return nil, nil
	}
	return c.ClientForPage(e.PageID()).UserProfile(ctx, e.SenderID(), c.fields)
}

// CreateContext builds the Messenger handler facade, bound to the
// client for the event's page.
func (c *Connector) CreateContext(_ context.Context, event bot.Event, sess *session.Session, key string) (bot.Context, error) {
	e, ok := event.(*Event)
	if !ok {
		return nil, bot.ErrWrongEventType
	}
	return &Context{
		event:  e,
		sess:   sess,
		key:    key,
		client: c.ClientForPage(e.PageID()),
	}, nil
}
