package logger

import (
	"context"
	"log/slog"

	"github.com/duskbyte/courier-go/internal/ctxutil"
)

// ContextHandler is a slog.Handler that extracts tracing values (request
// id, session key, platform) from the context and adds them as attributes
// to every record, so call sites never pass them by hand.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a new ContextHandler that wraps the provided handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enriches the record with context values before delegating.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if key := ctxutil.GetSessionKey(ctx); key != "" {
		r.AddAttrs(slog.String("session_key", key))
	}
	if platform := ctxutil.GetPlatform(ctx); platform != "" {
		r.AddAttrs(slog.String("platform", platform))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the attributes applied.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler with the group applied.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
