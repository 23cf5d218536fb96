package session

import (
	"context"
	"time"

	"github.com/duskbyte/courier-go/internal/logger"
)

// Backend is the driver-level contract a storage backend implements.
// Backends are dumb: they surface I/O errors and never apply TTL semantics.
// Expiry and the cache-miss-on-error policy live in Store.
type Backend interface {
	// Init acquires the backend connection. Called once before any other
	// method; must be idempotent.
	Init(ctx context.Context) error

	// Get returns the stored session, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) (*Session, error)

	// Set upserts the full document under key.
	Set(ctx context.Context, key string, sess *Session) error

	// Delete removes the document; absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// List returns every stored document keyed by session key.
	List(ctx context.Context) (map[string]*Session, error)

	// Close releases the backend connection.
	Close() error
}

// Store layers the session contract on top of a Backend: lazy TTL expiry on
// read, last-activity refresh on write, and degradation of backend I/O
// failures into misses/no-ops. Store never surfaces read or write errors to
// the request path; Init errors do propagate so misconfiguration fails fast.
type Store struct {
	backend   Backend
	expiresIn time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewStore wraps a backend with the expiry window. A zero expiresIn means
// sessions never expire.
func NewStore(backend Backend, expiresIn time.Duration, log *logger.Logger) *Store {
	return &Store{
		backend:   backend,
		expiresIn: expiresIn,
		logger:    log.WithModule("session"),
		now:       time.Now,
	}
}

// Init acquires the backend connection.
func (st *Store) Init(ctx context.Context) error {
	return st.backend.Init(ctx)
}

// Read returns the session for key, or nil when the key is absent, the
// document has expired, or the backend failed. Backend failures are logged
// and treated as a miss so a flaky store degrades to stateless dispatch
// instead of failing the request.
func (st *Store) Read(ctx context.Context, key string) *Session {
	sess, err := st.backend.Get(ctx, key)
	if err != nil {
		st.logger.WithError(err).WithField("key", key).Warn("Session read failed; treating as miss")
		return nil
	}
	if sess == nil {
		return nil
	}
	if sess.Expired(st.expiresIn, st.now()) {
		return nil
	}
	return sess
}

// Write upserts the session and refreshes its last-activity clock. Errors
// are logged and swallowed: persistence is at-most-once per request and a
// failed write must not fail the dispatch that produced it.
func (st *Store) Write(ctx context.Context, key string, sess *Session) {
	sess.Touch(st.now())
	if err := st.backend.Set(ctx, key, sess); err != nil {
		st.logger.WithError(err).WithField("key", key).Warn("Session write failed; not persisted")
	}
}

// Destroy deletes the session for key. Absent keys and backend failures are
// tolerated; failures are logged.
func (st *Store) Destroy(ctx context.Context, key string) {
	if err := st.backend.Delete(ctx, key); err != nil {
		st.logger.WithError(err).WithField("key", key).Warn("Session destroy failed")
	}
}

// All returns every non-expired session keyed by session key. Administrative
// surface only; the dispatch path never calls it.
func (st *Store) All(ctx context.Context) map[string]*Session {
	docs, err := st.backend.List(ctx)
	if err != nil {
		st.logger.WithError(err).Warn("Session list failed")
		return nil
	}
	now := st.now()
	out := make(map[string]*Session, len(docs))
	for key, sess := range docs {
		if sess.Expired(st.expiresIn, now) {
			continue
		}
		out[key] = sess
	}
	return out
}

// Close releases the backend connection.
func (st *Store) Close() error {
	return st.backend.Close()
}

// ExpiresIn returns the configured expiry window.
func (st *Store) ExpiresIn() time.Duration {
	return st.expiresIn
}
