// Package snapshot archives the SQLite session database to object
// storage. One instance holds a distributed lease and uploads
// compressed snapshots on an interval; fresh instances restore the
// latest snapshot before opening the local database.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/objstore"
	"github.com/duskbyte/courier-go/internal/session"
)

// ErrNotFound indicates no snapshot exists in the bucket.
var ErrNotFound = errors.New("snapshot: not found")

// Config holds snapshot manager configuration.
type Config struct {
	// SnapshotKey is the object key the compressed database lives at.
	SnapshotKey string

	// LockKey is the object key backing the uploader lease.
	LockKey string

	// LockTTL bounds how long a crashed holder blocks takeover.
	LockTTL time.Duration

	// Interval is the time between snapshot uploads.
	Interval time.Duration

	// TempDir holds scratch files during compression. Defaults to the
	// system temp directory.
	TempDir string
}

// Manager uploads and restores session database snapshots.
type Manager struct {
	client *objstore.Client
	cfg    Config
	log    *logger.Logger

	mu          sync.RWMutex
	currentETag string

	leaseMu sync.Mutex
	lease   *objstore.Lease

	runCancel context.CancelFunc
	runDone   chan struct{}
}

// New creates a snapshot manager.
func New(client *objstore.Client, cfg Config, log *logger.Logger) *Manager {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Manager{
		client: client,
		cfg:    cfg,
		log:    log.WithModule("snapshot"),
	}
}

// Restore downloads and decompresses the latest snapshot to dbPath.
// Returns ErrNotFound when the bucket has no snapshot yet. Call before
// opening the local database.
func (m *Manager) Restore(ctx context.Context, dbPath string) error {
	body, etag, err := m.client.Download(ctx, m.cfg.SnapshotKey)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("download snapshot: %w", err)
	}
	defer func() { _ = body.Close() }()

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	if err := objstore.DecompressStream(body, dbPath); err != nil {
		return fmt.Errorf("decompress snapshot: %w", err)
	}

	m.mu.Lock()
	m.currentETag = etag
	m.mu.Unlock()

	m.log.WithField("etag", etag).Info("session snapshot restored")
	return nil
}

// Upload writes a consistent copy of the session database, compresses
// it and uploads it. Returns the new snapshot's ETag.
func (m *Manager) Upload(ctx context.Context, backend *session.SQLiteBackend) (string, error) {
	scratch := filepath.Join(m.cfg.TempDir, fmt.Sprintf("sessions_%d.db", time.Now().UnixNano()))
	if err := backend.Snapshot(ctx, scratch); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	defer func() { _ = os.Remove(scratch) }()

	compressed := scratch + ".zst"
	if err := objstore.CompressFile(scratch, compressed); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	defer func() { _ = os.Remove(compressed) }()

	file, err := os.Open(compressed)
	if err != nil {
		return "", fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer func() { _ = file.Close() }()

	etag, err := m.client.Upload(ctx, m.cfg.SnapshotKey, file, "application/zstd")
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	m.mu.Lock()
	m.currentETag = etag
	m.mu.Unlock()
	return etag, nil
}

// Start launches the background upload loop. Each tick the manager
// tries to hold the uploader lease; only the holder uploads.
func (m *Manager) Start(ctx context.Context, backend *session.SQLiteBackend) {
	runCtx, cancel := context.WithCancel(ctx)
	m.runCancel = cancel
	m.runDone = make(chan struct{})

	go func() {
		defer close(m.runDone)

		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				m.log.Info("snapshot loop stopped")
				return
			case <-ticker.C:
				m.tick(runCtx, backend)
			}
		}
	}()

	m.log.WithField("interval", m.cfg.Interval.String()).
		WithField("snapshot_key", m.cfg.SnapshotKey).
		Info("snapshot loop started")
}

// tick renews or acquires the lease and uploads while holding it.
func (m *Manager) tick(ctx context.Context, backend *session.SQLiteBackend) {
	m.leaseMu.Lock()
	lease := m.lease
	m.leaseMu.Unlock()

	if lease != nil {
		renewed, err := lease.Renew(ctx)
		if err != nil {
			m.log.WithError(err).Warn("lease renew failed")
		}
		if err != nil || !renewed {
			m.leaseMu.Lock()
			m.lease = nil
			m.leaseMu.Unlock()
			lease = nil
		}
	}

	if lease == nil {
		candidate := objstore.NewLease(m.client, m.cfg.LockKey, m.cfg.LockTTL)
		acquired, err := candidate.Acquire(ctx)
		if err != nil {
			m.log.WithError(err).Warn("lease acquire failed")
			return
		}
		if !acquired {
			return
		}
		m.leaseMu.Lock()
		m.lease = candidate
		m.leaseMu.Unlock()
		m.log.WithField("owner", candidate.OwnerID()).Info("acquired snapshot uploader lease")
	}

	etag, err := m.Upload(ctx, backend)
	if err != nil {
		m.log.WithError(err).Error("snapshot upload failed")
		return
	}
	m.log.WithField("etag", etag).Info("session snapshot uploaded")
}

// Stop halts the upload loop and releases the lease when held. A final
// upload runs first so a clean shutdown never loses session writes.
func (m *Manager) Stop(ctx context.Context, backend *session.SQLiteBackend) {
	if m.runCancel != nil {
		m.runCancel()
		<-m.runDone
	}

	m.leaseMu.Lock()
	lease := m.lease
	m.lease = nil
	m.leaseMu.Unlock()

	if lease == nil {
		return
	}

	if _, err := m.Upload(ctx, backend); err != nil {
		m.log.WithError(err).Warn("final snapshot upload failed")
	}
	if err := lease.Release(ctx); err != nil {
		m.log.WithError(err).Warn("lease release failed")
	}
}

// CurrentETag returns the last uploaded or restored snapshot's ETag.
func (m *Manager) CurrentETag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentETag
}

// HasRemote reports whether any snapshot exists in the bucket.
func (m *Manager) HasRemote(ctx context.Context) (bool, error) {
	_, err := m.client.Head(ctx, m.cfg.SnapshotKey)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CopyLocal duplicates the live database file, a fallback used when
// object storage is unreachable during shutdown.
func CopyLocal(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}
	return nil
}
