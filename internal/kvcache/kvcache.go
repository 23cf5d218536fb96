// Package kvcache provides a small SQLite-backed key-value cache with TTL.
//
// Connectors use it for lookups that are expensive against platform APIs
// and stable over time, such as comment thread ancestry and user profiles.
// Entries are namespaced so independent caches can share one database file.
package kvcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	cached_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_kv_entries_cached_at ON kv_entries(cached_at);
`

// Cache wraps the SQLite key-value store
type Cache struct {
	conn *sql.DB
	path string
	ttl  time.Duration // 0 means entries never expire

	now func() time.Time
}

// New creates a new cache backed by the database file at path.
// A ttl of 0 disables expiry.
func New(path string, ttl time.Duration) (*Cache, error) {
	// Ensure directory exists (skip for in-memory database)
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to handle concurrent webhook workers
	if _, err := conn.Exec("PRAGMA busy_timeout=30000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Set synchronous mode to NORMAL for better performance
	if _, err := conn.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Cache{
		conn: conn,
		path: path,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

// Get returns the raw value for key in the namespace.
// The second return value is false when the key is absent or expired.
func (c *Cache) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	var cachedAt int64
	err := c.conn.QueryRowContext(ctx,
		`SELECT value, cached_at FROM kv_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if c.ttl > 0 && cachedAt <= c.now().Add(-c.ttl).Unix() {
		return "", false, nil
	}
	return value, true, nil
}

// Set stores value under key in the namespace, replacing any existing entry.
func (c *Cache) Set(ctx context.Context, namespace, key, value string) error {
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO kv_entries (namespace, key, value, cached_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			cached_at = excluded.cached_at`,
		namespace, key, value, c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// GetJSON reads the value for key and unmarshals it into v.
func (c *Cache) GetJSON(ctx context.Context, namespace, key string, v any) (bool, error) {
	raw, ok, err := c.Get(ctx, namespace, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func (c *Cache) SetJSON(ctx context.Context, namespace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.Set(ctx, namespace, key, string(raw))
}

// Delete removes the entry for key in the namespace.
func (c *Cache) Delete(ctx context.Context, namespace, key string) error {
	_, err := c.conn.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup deletes expired entries and returns how many were removed.
// It is a no-op when the cache has no TTL.
func (c *Cache) Cleanup(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.conn.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE cached_at <= ?`,
		c.now().Add(-c.ttl).Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed entries: %w", err)
	}
	return removed, nil
}

// Path returns the database file path
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
