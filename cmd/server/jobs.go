package main

import (
	"context"
	"time"

	"github.com/duskbyte/courier-go/internal/config"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/metrics"
	"github.com/duskbyte/courier-go/internal/session"
)

// sweepSessions periodically deletes expired rows from the SQLite
// backend. The store already ignores expired sessions on read; the
// sweep just reclaims disk.
func sweepSessions(ctx context.Context, backend *session.SQLiteBackend, expiresIn time.Duration, m *metrics.Metrics, log *logger.Logger) {
	log = log.WithModule("sweep")

	select {
	case <-ctx.Done():
		return
	case <-time.After(config.SessionSweepInitialDelay):
	}
	sweepOnce(ctx, backend, expiresIn, m, log)

	ticker := time.NewTicker(config.SessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, backend, expiresIn, m, log)
		}
	}
}

func sweepOnce(ctx context.Context, backend *session.SQLiteBackend, expiresIn time.Duration, m *metrics.Metrics, log *logger.Logger) {
	cutoff := time.Now().Add(-expiresIn).UnixMilli()
	deleted, err := backend.Sweep(ctx, cutoff)
	if err != nil {
		log.WithError(err).Error("Session sweep failed")
		return
	}
	if deleted > 0 {
		for range deleted {
			m.RecordSessionExpired(session.DriverSQLite)
		}
		log.WithField("deleted", deleted).Info("Swept expired sessions")
	}
}

// updateSessionMetrics keeps the active session gauge current.
func updateSessionMetrics(ctx context.Context, store *session.Store, driver string, m *metrics.Metrics, log *logger.Logger) {
	log = log.WithModule("metrics")

	update := func() {
		n := len(store.All(ctx))
		m.SetActiveSessions(driver, n)
		log.WithField("sessions", n).Debug("Session gauge updated")
	}
	update()

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
