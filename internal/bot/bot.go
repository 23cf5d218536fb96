package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/duskbyte/courier-go/internal/ctxutil"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// Config holds the dependencies for a Bot
type Config struct {
	Connector Connector
	Store     *session.Store
	Logger    *logger.Logger
	Metrics   *metrics.Metrics // optional

	// Concurrency is the number of events from one request processed in
	// parallel. Values below 2 mean sequential processing.
	Concurrency int
}

// Bot owns one connector and one session store and runs the dispatch
// pipeline for every inbound request.
type Bot struct {
	connector   Connector
	store       *session.Store
	log         *logger.Logger
	metrics     *metrics.Metrics
	concurrency int

	handler    Handler
	plugins    []Plugin
	errHandler ErrorHandler

	initFlight  singleflight.Group
	initialized atomic.Bool
}

// New creates a Bot from the given dependencies.
func New(cfg Config) *Bot {
	return &Bot{
		connector:   cfg.Connector,
		store:       cfg.Store,
		log:         cfg.Logger.WithModule("bot").WithField("platform", cfg.Connector.Platform()),
		metrics:     cfg.Metrics,
		concurrency: cfg.Concurrency,
	}
}

// Use registers a plugin. Plugins run before the primary handler on
// every event, in registration order.
func (b *Bot) Use(p Plugin) {
	b.plugins = append(b.plugins, p)
}

// OnEvent registers the primary handler.
func (b *Bot) OnEvent(h Handler) {
	b.handler = h
}

// OnError registers the pipeline error handler. Without one, event
// processing errors propagate to the transport layer.
func (b *Bot) OnError(h ErrorHandler) {
	b.errHandler = h
}

// Connector returns the bot's connector.
func (b *Bot) Connector() Connector {
	return b.connector
}

// HandleRequest runs the dispatch pipeline for one inbound request.
// The returned response is handed verbatim to the transport layer.
func (b *Bot) HandleRequest(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	platform := b.connector.Platform()

	if _, ok := ctxutil.GetRequestID(ctx); !ok {
		ctx = ctxutil.WithRequestID(ctx, uuid.NewString())
	}
	ctx = ctxutil.WithPlatform(ctx, platform)

	if err := b.initStore(ctx); err != nil {
		return nil, fmt.Errorf("store init: %w", err)
	}

	if pre, ok := b.connector.(Preprocessor); ok {
		result := pre.Preprocess(ctx, req)
		if !result.ShouldNext {
			if b.metrics != nil {
				b.metrics.RecordPreprocessShortCircuit(platform)
				b.metrics.RecordWebhook(platform, "rejected", time.Since(start).Seconds())
			}
			b.log.WarnContext(ctx, "request rejected during preprocessing")
			return result.Response, nil
		}
	}

	events := b.connector.MapRequestToEvents(req)
	if len(events) == 0 {
		if b.metrics != nil {
			b.metrics.RecordWebhook(platform, "success", time.Since(start).Seconds())
		}
		return &Response{Status: http.StatusOK, Body: map[string]any{"ok": true}}, nil
	}

	var errs []error
	if b.concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)
		for _, event := range events {
			g.Go(func() error {
				return b.processEvent(gctx, event)
			})
		}
		if err := g.Wait(); err != nil {
			errs = append(errs, err)
		}
	} else {
		for _, event := range events {
			if err := b.processEvent(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		if b.metrics != nil {
			b.metrics.RecordWebhook(platform, "error", time.Since(start).Seconds())
		}
		return nil, errors.Join(errs...)
	}

	if b.metrics != nil {
		b.metrics.RecordWebhook(platform, "success", time.Since(start).Seconds())
	}
	return &Response{Status: http.StatusOK, Body: map[string]any{"ok": true}}, nil
}

// initStore initializes the session store on the first request only.
// The singleflight gate keeps concurrent cold-start requests from
// double-initializing the backend connection.
func (b *Bot) initStore(ctx context.Context) error {
	if b.initialized.Load() {
		return nil
	}

	_, err, shared := b.initFlight.Do("store_init", func() (any, error) {
		if b.initialized.Load() {
			return nil, nil
		}
		if err := b.store.Init(ctx); err != nil {
			return nil, err
		}
		b.initialized.Store(true)
		return nil, nil
	})
	if shared && b.metrics != nil {
		b.metrics.RecordSingleflightDedup("store_init")
	}
	return err
}

// processEvent runs pipeline steps 3 through 5 for one event. Any error
// from plugins or handlers is caught here once and redirected to the
// registered error handler when there is one.
func (b *Bot) processEvent(ctx context.Context, event Event) error {
	platform := b.connector.Platform()
	if b.metrics != nil {
		b.metrics.RecordEvent(platform, eventType(event))
	}

	key, err := b.connector.UniqueSessionKey(ctx, event)
	if err != nil {
		// A failed identity resolution degrades to a stateless event.
		b.log.WithError(err).WarnContext(ctx, "session key resolution failed, treating event as stateless")
		key = ""
	}

	var sess *session.Session
	if key != "" {
		ctx = ctxutil.WithSessionKey(ctx, key)
		sess = b.store.Read(ctx, key)
	}
	if sess == nil {
		sess = session.New()
	}

	if err := b.connector.UpdateSession(ctx, sess, event); err != nil {
		return b.dispatchError(ctx, fmt.Errorf("update session: %w", err), nil)
	}

	if key != "" && sess.User == nil {
		b.enrichUser(ctx, sess, event)
	}

	c, err := b.connector.CreateContext(ctx, event, sess, key)
	if err != nil {
		return b.dispatchError(ctx, fmt.Errorf("create context: %w", err), nil)
	}

	if err := b.dispatch(ctx, c); err != nil {
		return b.dispatchError(ctx, err, c)
	}

	if key != "" {
		b.store.Write(ctx, key, sess)
	}
	return nil
}

// enrichUser fetches the platform user profile on the first event from
// an identity. A failed fetch leaves the session without a user, it is
// never fatal for the request.
func (b *Bot) enrichUser(ctx context.Context, sess *session.Session, event Event) {
	profiler, ok := b.connector.(UserProfiler)
	if !ok {
		return
	}

	profile, err := profiler.UserProfile(ctx, event)
	if err != nil {
		if b.metrics != nil {
			b.metrics.RecordProfileFetch(b.connector.Platform(), "error")
		}
		b.log.WithError(err).WarnContext(ctx, "user profile fetch failed")
		return
	}
	if profile == nil {
		return
	}
	if b.metrics != nil {
		b.metrics.RecordProfileFetch(b.connector.Platform(), "success")
	}

	sess.SetUser(&session.User{
		ID:        event.SenderID(),
		Platform:  b.connector.Platform(),
		UpdatedAt: time.Now(),
		Profile:   profile,
	})
}

// dispatch runs plugins and the primary handler, following handler
// continuations until one returns nil.
func (b *Bot) dispatch(ctx context.Context, c Context) error {
	start := time.Now()

	for _, plugin := range b.plugins {
		if err := plugin(ctx, c); err != nil {
			return fmt.Errorf("plugin: %w", err)
		}
	}

	var err error
	for next := b.handler; next != nil; {
		next, err = next(ctx, c)
		if err != nil {
			break
		}
	}

	if b.metrics != nil {
		b.metrics.RecordHandler(b.connector.Platform(), time.Since(start).Seconds(), err)
	}
	return err
}

// dispatchError forwards an event processing error to the registered
// error handler, or returns it for the transport layer when none is set.
func (b *Bot) dispatchError(ctx context.Context, err error, c Context) error {
	if b.errHandler == nil {
		return err
	}
	b.log.WithError(err).ErrorContext(ctx, "event processing failed")
	b.errHandler(ctx, err, c)
	return nil
}

// eventType maps an event to its metrics label.
func eventType(event Event) string {
	switch {
	case event.IsMessage():
		return "message"
	case event.IsPayload():
		return "payload"
	default:
		return "other"
	}
}
