package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// SQLiteBackend persists sessions in a local SQLite database. Documents are
// stored as their JSON wire encoding with lastActivity mirrored into an
// indexed column so expired rows can be swept without decoding.
type SQLiteBackend struct {
	path string

	initOnce sync.Once
	initErr  error
	conn     *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	key TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	last_activity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
`

// NewSQLiteBackend creates a SQLite-backed session backend at path.
// Use ":memory:" for an ephemeral database in tests.
func NewSQLiteBackend(path string) *SQLiteBackend {
	if path == "" {
		path = "sessions.db"
	}
	return &SQLiteBackend{path: path}
}

// Init opens the database, applies pragmas for concurrent webhook traffic
// and creates the schema. Safe to call more than once.
func (b *SQLiteBackend) Init(_ context.Context) error {
	b.initOnce.Do(func() { b.initErr = b.open() })
	return b.initErr
}

func (b *SQLiteBackend) open() error {
	if b.path != ":memory:" {
		if dir := filepath.Dir(b.path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create session database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", b.path)
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)

	// WAL keeps readers unblocked while webhook writes land.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ping session database: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		_ = conn.Close()
		return fmt.Errorf("initialize session schema: %w", err)
	}

	b.conn = conn
	return nil
}

// Get returns the decoded document for key, or (nil, nil) when absent.
func (b *SQLiteBackend) Get(ctx context.Context, key string) (*Session, error) {
	var document string
	err := b.conn.QueryRowContext(ctx,
		`SELECT document FROM sessions WHERE key = ?`, key).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(document), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Set upserts the full document.
func (b *SQLiteBackend) Set(ctx context.Context, key string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = b.conn.ExecContext(ctx, `
		INSERT INTO sessions (key, document, last_activity)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			document = excluded.document,
			last_activity = excluded.last_activity
	`, key, string(raw), sess.LastActivity)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the row; absent keys are fine.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.conn.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List decodes every stored document.
func (b *SQLiteBackend) List(ctx context.Context) (map[string]*Session, error) {
	rows, err := b.conn.QueryContext(ctx, `SELECT key, document FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*Session)
	for rows.Next() {
		var key, document string
		if err := rows.Scan(&key, &document); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var sess Session
		if err := json.Unmarshal([]byte(document), &sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", key, err)
		}
		out[key] = &sess
	}
	return out, rows.Err()
}

// Sweep deletes rows whose last activity is older than cutoff (epoch
// millis). Active eviction on top of the Store's lazy expiry; invoked by
// the server's maintenance job.
func (b *SQLiteBackend) Sweep(ctx context.Context, cutoff int64) (int64, error) {
	res, err := b.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_activity > 0 AND last_activity < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Snapshot writes a consistent copy of the database to destPath. VACUUM
// INTO produces a compact single-file image even while WAL writers are
// active.
func (b *SQLiteBackend) Snapshot(ctx context.Context, destPath string) error {
	if b.conn == nil {
		return fmt.Errorf("snapshot: database not initialized")
	}
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("snapshot: remove stale file: %w", err)
		}
	}
	if _, err := b.conn.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string { return b.path }

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
