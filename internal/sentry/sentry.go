// Package sentry wraps Sentry SDK initialization for error tracking.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds error tracking configuration.
type Config struct {
	// DSN is the Sentry project DSN. Empty disables the integration.
	DSN string

	// Environment identifies the deployment environment.
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0).
	SampleRate float64

	// TracesSampleRate controls performance trace sampling.
	TracesSampleRate float64

	// Debug enables SDK debug logging.
	Debug bool
}

// Initialize sets up the Sentry SDK. An empty DSN leaves the
// integration disabled and returns nil.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

// Flush waits for buffered events to reach the server. Returns true
// when everything was sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether the SDK is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports an error.
func CaptureException(err error) {
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext reports an error on the hub bound to the
// request context when one exists.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// CaptureMessage reports a plain message.
func CaptureMessage(message string) {
	sentry.CaptureMessage(message)
}
