// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	requestIDKey  contextKey = "ctxutil.requestID"
	sessionKeyKey contextKey = "ctxutil.sessionKey"
	platformKey   contextKey = "ctxutil.platform"
)

// WithRequestID adds a request ID to the context for tracing.
// Request ID is generated per webhook request for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// WithSessionKey adds the resolved session key to the context.
// The session key identifies the conversation ("<platform>:<identity>").
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyKey, key)
}

// GetSessionKey retrieves the session key from the context.
// Returns the session key if found, empty string otherwise.
func GetSessionKey(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKeyKey).(string); ok {
		return v
	}
	return ""
}

// WithPlatform adds the connector's platform discriminant to the context.
func WithPlatform(ctx context.Context, platform string) context.Context {
	return context.WithValue(ctx, platformKey, platform)
}

// GetPlatform retrieves the platform from the context.
// Returns the platform if found, empty string otherwise.
func GetPlatform(ctx context.Context) string {
	if v, ok := ctx.Value(platformKey).(string); ok {
		return v
	}
	return ""
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Use for async work that needs tracing but must outlive the parent context,
// such as webhook processing that continues after the HTTP response is sent.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if key := GetSessionKey(ctx); key != "" {
		newCtx = WithSessionKey(newCtx, key)
	}
	if platform := GetPlatform(ctx); platform != "" {
		newCtx = WithPlatform(newCtx, platform)
	}

	return newCtx
}
