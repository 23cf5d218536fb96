// Package config provides centralized timeout constants for the application.
//
// Messaging platforms expect a quick webhook acknowledgment (200 OK) and
// most of them retry deliveries on slow responses, so the HTTP timeouts
// here are tuned for small JSON payloads and fast handler turnaround.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for processing a single webhook request.
	// This covers verification, session reads and writes, and handler execution.
	WebhookProcessing = 30 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Platform payloads are small JSON documents.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// Should accommodate WebhookProcessing + response serialization.
	WebhookHTTPWrite = 35 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Platform API timeouts
const (
	// ClientRequest is the timeout for a single outbound platform API call,
	// such as replying to a message or fetching a user profile.
	ClientRequest = 15 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Handles concurrent write contention across webhook workers.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	// Prevents stale connections and allows connection pool refresh.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// SessionSweepInterval is how often expired sessions are deleted from
	// backends that keep them until the next sweep.
	SessionSweepInterval = 12 * time.Hour

	// SessionSweepInitialDelay is the delay before the first sweep.
	// Allows server to stabilize before running cleanup.
	SessionSweepInitialDelay = 5 * time.Minute

	// MetricsUpdateInterval is how often session count metrics are updated.
	MetricsUpdateInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
