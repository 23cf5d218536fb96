package session

import (
	"context"
	"sync"
)

// defaultMaxSessions bounds the in-memory backend when no size is given.
const defaultMaxSessions = 500

// MemoryBackend keeps sessions in process memory. Intended for development
// and tests; every process restart loses all sessions. When the backend is
// full the session with the oldest activity is evicted.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxSize  int
}

// NewMemoryBackend creates an in-memory backend holding at most maxSize
// sessions. maxSize <= 0 uses the default bound.
func NewMemoryBackend(maxSize int) *MemoryBackend {
	if maxSize <= 0 {
		maxSize = defaultMaxSessions
	}
	return &MemoryBackend{
		sessions: make(map[string]*Session),
		maxSize:  maxSize,
	}
}

// Init is a no-op; the map is ready at construction.
func (b *MemoryBackend) Init(_ context.Context) error { return nil }

// Get returns a deep copy so callers never alias the stored document.
func (b *MemoryBackend) Get(_ context.Context, key string) (*Session, error) {
	b.mu.RLock()
	sess, ok := b.sessions[key]
	b.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return sess.Clone()
}

// Set stores a deep copy of the session, evicting the least recently
// active document when the bound is exceeded.
func (b *MemoryBackend) Set(_ context.Context, key string, sess *Session) error {
	copied, err := sess.Clone()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.sessions[key]; !exists && len(b.sessions) >= b.maxSize {
		b.evictOldestLocked()
	}
	b.sessions[key] = copied
	return nil
}

// Delete removes the document; absent keys are fine.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.sessions, key)
	b.mu.Unlock()
	return nil
}

// List returns copies of every stored document.
func (b *MemoryBackend) List(_ context.Context) (map[string]*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]*Session, len(b.sessions))
	for key, sess := range b.sessions {
		copied, err := sess.Clone()
		if err != nil {
			return nil, err
		}
		out[key] = copied
	}
	return out, nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }

// evictOldestLocked drops the session with the smallest last-activity
// timestamp. Caller must hold the write lock.
func (b *MemoryBackend) evictOldestLocked() {
	var oldestKey string
	var oldest int64 = -1
	for key, sess := range b.sessions {
		if oldest == -1 || sess.LastActivity < oldest {
			oldest = sess.LastActivity
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(b.sessions, oldestKey)
	}
}
