package facebook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/kvcache"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/messenger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// PlatformName is the connector's discriminant literal.
const PlatformName = "facebook"

// threadCacheNamespace keys resolved comment-to-root mappings in the
// auxiliary cache.
const threadCacheNamespace = "comment_thread"

// ConnectorConfig holds the dependencies for a Connector
type ConnectorConfig struct {
	// Messenger supplies webhook verification, page clients, and
	// handling for the messaging entries of the shared webhook.
	Messenger *messenger.Connector

	// Cache stores resolved comment thread roots.
	Cache *kvcache.Cache

	Logger  *logger.Logger
	Metrics *metrics.Metrics // optional
}

// Connector handles page feed events and delegates messaging entries to
// the messenger connector.
type Connector struct {
	messenger *messenger.Connector
	cache     *kvcache.Cache
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewConnector creates a facebook connector.
func NewConnector(cfg ConnectorConfig) *Connector {
	return &Connector{
		messenger: cfg.Messenger,
		cache:     cfg.Cache,
		log:       cfg.Logger.WithModule("facebook"),
		metrics:   cfg.Metrics,
	}
}

// Platform returns "facebook".
func (c *Connector) Platform() string { return PlatformName }

// Preprocess delegates to the messenger connector; both connectors
// share the app secret and subscription handshake.
func (c *Connector) Preprocess(ctx context.Context, req *bot.Request) bot.PreprocessResult {
	return c.messenger.Preprocess(ctx, req)
}

// change is one feed change with its typed value.
type change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// entry mirrors the webhook entry with typed changes.
type entry struct {
	ID        string                `json:"id"`
	Time      int64                 `json:"time,omitempty"`
	Messaging []messenger.Messaging `json:"messaging,omitempty"`
	Standby   []messenger.Messaging `json:"standby,omitempty"`
	Changes   []change              `json:"changes,omitempty"`
}

type webhook struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

// MapRequestToEvents flattens messaging, standby, and feed change
// entries into events, one per logical item. The page's own comments
// are dropped so the bot never answers itself.
func (c *Connector) MapRequestToEvents(req *bot.Request) []bot.Event {
	var hook webhook
	if err := json.Unmarshal(req.RawBody, &hook); err != nil {
		c.log.WithError(err).Warn("failed to parse webhook body")
		return nil
	}
	if hook.Object != "page" {
		return nil
	}

	now := time.Now()
	var events []bot.Event
	for _, en := range hook.Entry {
		for i := range en.Messaging {
			events = append(events, messenger.NewEvent(&en.Messaging[i], en.ID, false, now))
		}
		for i := range en.Standby {
			events = append(events, messenger.NewEvent(&en.Standby[i], en.ID, true, now))
		}
		for i := range en.Changes {
			ch := en.Changes[i]
			if ch.Field != "feed" {
				continue
			}
			if ch.Value.From != nil && ch.Value.From.ID == en.ID {
				continue
			}
			events = append(events, NewEvent(&ch.Value, en.ID, now))
		}
	}
	return events
}

// UniqueSessionKey resolves the comment thread root for feed events and
// delegates messaging events to the messenger connector.
func (c *Connector) UniqueSessionKey(ctx context.Context, event bot.Event) (string, error) {
	switch e := event.(type) {
	case *messenger.Event:
		return c.messenger.UniqueSessionKey(ctx, e)
	case *Event:
		if !e.IsComment() {
			if e.Value().PostID != "" {
				return session.Key(PlatformName, e.Value().PostID), nil
			}
			return "", nil
		}
		root, err := c.resolveThreadRoot(ctx, e)
		if err != nil || root == "" {
			return "", err
		}
		return session.Key(PlatformName, root), nil
	default:
		return "", nil
	}
}

// threadRecord is the cached resolution for one comment node.
type threadRecord struct {
	RootID string `json:"root_id"`
}

// resolveThreadRoot walks the reply chain up to the thread root, the
// top-level comment with no further parent. Every node visited during
// the walk is cached against the root id, so repeated replies in the
// same thread resolve in a single cache lookup. The walk is cycle-safe:
// a revisited node ends the walk with its cached or in-flight
// resolution instead of re-querying.
func (c *Connector) resolveThreadRoot(ctx context.Context, e *Event) (string, error) {
	v := e.Value()

	if cached, ok := c.lookupThread(ctx, v.CommentID); ok {
		return cached, nil
	}

	if e.IsFirstLevelComment() {
		c.storeThread(ctx, v.CommentID, v.CommentID)
		return v.CommentID, nil
	}

	client := c.messenger.ClientForPage(e.PageID())
	visited := []string{v.CommentID}
	seen := map[string]bool{v.CommentID: true}

	root := ""
	cur := v.ParentID
	for {
		if seen[cur] {
			root = cur
			break
		}
		if cached, ok := c.lookupThread(ctx, cur); ok {
			root = cached
			break
		}
		seen[cur] = true

		node, err := client.CommentInfo(ctx, cur)
		if err != nil {
			return "", err
		}
		if node.Parent == nil || node.Parent.ID == "" || node.Parent.ID == v.PostID {
			root = node.ID
			visited = append(visited, node.ID)
			break
		}
		visited = append(visited, cur)
		cur = node.Parent.ID
	}

	for _, id := range visited {
		c.storeThread(ctx, id, root)
	}
	return root, nil
}

func (c *Connector) lookupThread(ctx context.Context, commentID string) (string, bool) {
	if commentID == "" {
		return "", false
	}
	var rec threadRecord
	ok, err := c.cache.GetJSON(ctx, threadCacheNamespace, commentID, &rec)
	if err != nil {
		c.log.WithError(err).Warn("thread cache read failed")
		return "", false
	}
	if c.metrics != nil {
		if ok {
			c.metrics.RecordCacheHit(threadCacheNamespace)
		} else {
			c.metrics.RecordCacheMiss(threadCacheNamespace)
		}
	}
	if !ok {
		return "", false
	}
	return rec.RootID, true
}

func (c *Connector) storeThread(ctx context.Context, commentID, rootID string) {
	if commentID == "" || rootID == "" {
		return
	}
	if err := c.cache.SetJSON(ctx, threadCacheNamespace, commentID, threadRecord{RootID: rootID}); err != nil {
		c.log.WithError(err).Warn("thread cache write failed")
	}
}

// UpdateSession merges the comment author into the session for feed
// events and delegates messaging events to the messenger connector.
func (c *Connector) UpdateSession(ctx context.Context, sess *session.Session, event bot.Event) error {
	switch e := event.(type) {
	case *messenger.Event:
		return c.messenger.UpdateSession(ctx, sess, e)
	case *Event:
		if e.PageID() != "" {
			sess.SetPage(&session.Page{ID: e.PageID(), UpdatedAt: time.Now()})
		}
		if from := e.Value().From; from != nil {
			sess.SetUser(&session.User{
				ID:        from.ID,
				Platform:  PlatformName,
				UpdatedAt: time.Now(),
				Profile:   map[string]any{"name": from.Name},
			})
		}
		return nil
	default:
		return nil
	}
}

// UserProfile delegates to the messenger connector for messaging
// events. Feed changes already carry the author inline.
func (c *Connector) UserProfile(ctx context.Context, event bot.Event) (map[string]any, error) {
	if e, ok := event.(*messenger.Event); ok {
		return c.messenger.UserProfile(ctx, e)
	}
	return nil, nil
}

// CreateContext builds a messenger context for messaging events and a
// feed context for comment events.
func (c *Connector) CreateContext(ctx context.Context, event bot.Event, sess *session.Session, key string) (bot.Context, error) {
	switch e := event.(type) {
	case *messenger.Event:
		return c.messenger.CreateContext(ctx, e, sess, key)
	case *Event:
		return &Context{
			event:  e,
			sess:   sess,
			key:    key,
			client: c.messenger.ClientForPage(e.PageID()),
		}, nil
	default:
		return nil, bot.ErrWrongEventType
	}
}
