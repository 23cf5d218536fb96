package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/kvcache"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/messenger"
	"github.com/duskbyte/courier-go/internal/session"
)

// commentAPI serves Graph API comment lookups from a parent table and
// counts lookups.
type commentAPI struct {
	parents map[string]string // comment id -> parent comment id ("" = top level)
	calls   atomic.Int64
}

func (a *commentAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.calls.Add(1)
		id := r.URL.Path[1:]
		parent, ok := a.parents[id]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, `{"error":{"message":"unknown comment %s","type":"GraphMethodException","code":100}}`, id)
			return
		}
		if parent == "" {
			_, _ = fmt.Fprintf(w, `{"id":%q}`, id)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":%q,"parent":{"id":%q}}`, id, parent)
	}
}

func newTestConnector(t *testing.T, api *commentAPI) *Connector {
	t.Helper()
	log := logger.NewWithWriter("error", &bytes.Buffer{})

	m := messenger.NewConnector(messenger.ConnectorConfig{
		AppSecret:   "app-secret",
		VerifyToken: "verify-me",
		PageToken:   "page-token",
		Logger:      log,
	})
	if api != nil {
		server := httptest.NewServer(api.handler(t))
		t.Cleanup(server.Close)
		m.Client().SetBaseURL(server.URL)
	}

	cache, err := kvcache.New(":memory:", 0)
	if err != nil {
		t.Fatalf("kvcache.New() error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	return NewConnector(ConnectorConfig{
		Messenger: m,
		Cache:     cache,
		Logger:    log,
	})
}

func commentEvent(commentID, parentID, postID, from string) *Event {
	return NewEvent(&ChangeValue{
		Item:      "comment",
		Verb:      "add",
		CommentID: commentID,
		PostID:    postID,
		ParentID:  parentID,
		From:      &From{ID: from, Name: "Ann"},
		Message:   "nice post",
	}, "page-1", time.Now())
}

func feedBody(t *testing.T, pageID string, values ...ChangeValue) []byte {
	t.Helper()
	changes := make([]map[string]any, 0, len(values))
	for _, v := range values {
		changes = append(changes, map[string]any{"field": "feed", "value": v})
	}
	raw, err := json.Marshal(map[string]any{
		"object": "page",
		"entry":  []map[string]any{{"id": pageID, "changes": changes}},
	})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return raw
}

func TestMapRequestToEventsMixedEntries(t *testing.T) {
	conn := newTestConnector(t, nil)

	raw, _ := json.Marshal(map[string]any{
		"object": "page",
		"entry": []map[string]any{
			{
				"id": "page-1",
				"messaging": []map[string]any{
					{"sender": map[string]any{"id": "U1"}, "message": map[string]any{"mid": "m1", "text": "hi"}},
				},
			},
			{
				"id": "page-1",
				"changes": []map[string]any{
					{"field": "feed", "value": map[string]any{
						"item": "comment", "verb": "add",
						"comment_id": "c1", "post_id": "p1",
						"from": map[string]any{"id": "U2"}, "message": "first",
					}},
				},
			},
		},
	})

	events := conn.MapRequestToEvents(&bot.Request{RawBody: raw})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if _, ok := events[0].(*messenger.Event); !ok {
		t.Errorf("expected first event to be a messenger event, got %T", events[0])
	}
	feed, ok := events[1].(*Event)
	if !ok {
		t.Fatalf("expected second event to be a feed event, got %T", events[1])
	}
	if !feed.IsComment() || feed.Text() != "first" {
		t.Errorf("unexpected feed event: comment=%v text=%q", feed.IsComment(), feed.Text())
	}
}

func TestMapRequestToEventsDropsOwnComments(t *testing.T) {
	conn := newTestConnector(t, nil)
	body := feedBody(t, "page-1", ChangeValue{
		Item: "comment", Verb: "add", CommentID: "c1", PostID: "p1",
		From: &From{ID: "page-1"}, Message: "thanks!",
	})

	if events := conn.MapRequestToEvents(&bot.Request{RawBody: body}); len(events) != 0 {
		t.Errorf("expected the page's own comments to be dropped, got %d events", len(events))
	}
}

func TestThreadWalkResolvesChainToSameRoot(t *testing.T) {
	api := &commentAPI{parents: map[string]string{
		"root":       "",
		"child":      "root",
		"grandchild": "child",
	}}
	conn := newTestConnector(t, api)
	ctx := context.Background()

	rootKey, err := conn.UniqueSessionKey(ctx, commentEvent("root", "", "p1", "U1"))
	if err != nil {
		t.Fatalf("root key error: %v", err)
	}
	childKey, err := conn.UniqueSessionKey(ctx, commentEvent("child", "root", "p1", "U2"))
	if err != nil {
		t.Fatalf("child key error: %v", err)
	}
	grandKey, err := conn.UniqueSessionKey(ctx, commentEvent("grandchild", "child", "p1", "U3"))
	if err != nil {
		t.Fatalf("grandchild key error: %v", err)
	}

	if rootKey != "facebook:root" {
		t.Errorf("rootKey = %q, want facebook:root", rootKey)
	}
	if childKey != rootKey || grandKey != rootKey {
		t.Errorf("chain resolved to %q / %q / %q, want one key", rootKey, childKey, grandKey)
	}
}

func TestThreadWalkCachesResolution(t *testing.T) {
	api := &commentAPI{parents: map[string]string{
		"root":       "",
		"child":      "root",
		"grandchild": "child",
	}}
	conn := newTestConnector(t, api)
	ctx := context.Background()

	if _, err := conn.UniqueSessionKey(ctx, commentEvent("grandchild", "child", "p1", "U3")); err != nil {
		t.Fatalf("first walk error: %v", err)
	}
	walked := api.calls.Load()
	if walked == 0 {
		t.Fatal("expected the first resolution to hit the API")
	}

	// One level deeper: the parent is already cached, no API walk.
	api.parents["greatgrand"] = "grandchild"
	key, err := conn.UniqueSessionKey(ctx, commentEvent("greatgrand", "grandchild", "p1", "U4"))
	if err != nil {
		t.Fatalf("second walk error: %v", err)
	}
	if key != "facebook:root" {
		t.Errorf("key = %q, want facebook:root", key)
	}
	if api.calls.Load() != walked {
		t.Errorf("expected no additional API calls, got %d extra", api.calls.Load()-walked)
	}

	// The same comment again resolves straight from the cache.
	if _, err := conn.UniqueSessionKey(ctx, commentEvent("greatgrand", "grandchild", "p1", "U4")); err != nil {
		t.Fatalf("cached lookup error: %v", err)
	}
	if api.calls.Load() != walked {
		t.Error("expected cached resolution without API calls")
	}
}

func TestThreadWalkFailureDegradesToStateless(t *testing.T) {
	api := &commentAPI{parents: map[string]string{}}
	conn := newTestConnector(t, api)

	_, err := conn.UniqueSessionKey(context.Background(), commentEvent("child", "unknown", "p1", "U1"))
	if err == nil {
		t.Fatal("expected an error when the upstream lookup fails")
	}
}

func TestFirstLevelCommentShortCircuits(t *testing.T) {
	api := &commentAPI{parents: map[string]string{}}
	conn := newTestConnector(t, api)

	key, err := conn.UniqueSessionKey(context.Background(), commentEvent("c1", "p1", "p1", "U1"))
	if err != nil {
		t.Fatalf("UniqueSessionKey() error: %v", err)
	}
	if key != "facebook:c1" {
		t.Errorf("key = %q, want facebook:c1", key)
	}
	if api.calls.Load() != 0 {
		t.Errorf("first-level comments must not hit the API, got %d calls", api.calls.Load())
	}
}

func TestUpdateSessionMergesCommentAuthor(t *testing.T) {
	conn := newTestConnector(t, nil)
	sess := session.New()

	event := commentEvent("c1", "", "p1", "U1")
	if err := conn.UpdateSession(context.Background(), sess, event); err != nil {
		t.Fatalf("UpdateSession() error: %v", err)
	}
	if sess.User == nil || sess.User.ID != "U1" {
		t.Fatalf("expected user U1, got %+v", sess.User)
	}
	if sess.Page == nil || sess.Page.ID != "page-1" {
		t.Fatalf("expected page-1, got %+v", sess.Page)
	}

	first := sess.User
	other := commentEvent("c2", "", "p1", "U9")
	if err := conn.UpdateSession(context.Background(), sess, other); err != nil {
		t.Fatalf("UpdateSession() error: %v", err)
	}
	if sess.User != first {
		t.Error("user must be immutable after first merge")
	}
}

func TestCreateContextSendsCommentReply(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"id":"c1_reply"}`))
	}))
	defer server.Close()

	conn := newTestConnector(t, nil)
	conn.messenger.Client().SetBaseURL(server.URL)

	event := commentEvent("c1", "", "p1", "U1")
	c, err := conn.CreateContext(context.Background(), event, session.New(), "facebook:c1")
	if err != nil {
		t.Fatalf("CreateContext() error: %v", err)
	}
	if err := c.SendText(context.Background(), "thanks!"); err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if gotPath != "/c1/comments" {
		t.Errorf("path = %q, want /c1/comments", gotPath)
	}
	if gotBody["message"] != "thanks!" {
		t.Errorf("unexpected body: %v", gotBody)
	}
}
