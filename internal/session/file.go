package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend persists each session as one JSON document under a directory.
// Keys are base64url-encoded to produce safe file names ("telegram:42"
// contains a path-hostile colon on some platforms).
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file-backed session backend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	if dir == "" {
		dir = ".sessions"
	}
	return &FileBackend{dir: dir}
}

// Init ensures the session directory exists.
func (b *FileBackend) Init(_ context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return nil
}

// Get reads and decodes the document for key, or (nil, nil) when absent.
func (b *FileBackend) Get(_ context.Context, key string) (*Session, error) {
	raw, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return &sess, nil
}

// Set writes the document atomically via a temp file and rename.
func (b *FileBackend) Set(_ context.Context, key string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	target := b.path(key)
	tmp, err := os.CreateTemp(b.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Delete removes the document; absent keys are fine.
func (b *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

// List decodes every session document in the directory.
func (b *FileBackend) List(_ context.Context) (map[string]*Session, error) {
	entries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return map[string]*Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	out := make(map[string]*Session, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key, err := b.decodeName(entry.Name())
		if err != nil {
			// Foreign file in the directory; skip it.
			continue
		}
		raw, err := os.ReadFile(filepath.Join(b.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read session file: %w", err)
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("decode session file %s: %w", entry.Name(), err)
		}
		out[key] = &sess
	}
	return out, nil
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) path(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key)) + ".json"
	return filepath.Join(b.dir, name)
}

func (b *FileBackend) decodeName(name string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, ".json"))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
