// Package logger provides structured logging utilities for the application.
// It wraps log/slog with JSON formatting, context-based field extraction,
// and optional Better Stack log shipping on an async pipeline.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger
type Logger struct {
	*slog.Logger

	async *AsyncHandler
}

// Options configures optional log sinks beyond the JSON writer.
type Options struct {
	// BetterStackToken enables Better Stack shipping when non-empty.
	BetterStackToken string

	// BetterStackEndpoint is the Better Stack ingesting endpoint.
	BetterStackEndpoint string
}

// New creates a new logger instance with JSON formatting
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger instance with JSON formatting writing to the provided writer
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(level, w, Options{})
}

// NewWithOptions creates a logger that writes JSON to w, optionally fanning
// out to Better Stack through an async buffered handler so remote shipping
// never blocks the request path. Context values (request id, session key,
// platform) are attached to every record.
func NewWithOptions(level string, w io.Writer, opts Options) *Logger {
	logLevel := parseLevel(level)

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: normalizeAttrs,
	})

	var async *AsyncHandler
	handlers := []slog.Handler{jsonHandler}
	if opts.BetterStackToken != "" {
		remote := slogbetterstack.Option{
			Token:    opts.BetterStackToken,
			Endpoint: opts.BetterStackEndpoint,
			Level:    logLevel,
		}.NewBetterstackHandler()
		async = NewAsyncHandler(remote)
		handlers = append(handlers, async)
	}

	var handler slog.Handler = newFanout(handlers...)
	handler = NewContextHandler(handler)

	return &Logger{Logger: slog.New(handler), async: async}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// normalizeAttrs maps slog's default keys and level names to the wire
// format the log pipeline expects (lowercase levels, "message" key).
func normalizeAttrs(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// Shutdown flushes any buffered remote log records.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l.async == nil {
		return nil
	}
	return l.async.Shutdown(ctx)
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return &Logger{Logger: l.With("module", module), async: l.async}
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.With("request_id", requestID), async: l.async}
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err), async: l.async}
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(key, value), async: l.async}
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...), async: l.async}
}

// Fatal logs at error level and terminates the process. Startup only;
// request paths must return errors instead.
func (l *Logger) Fatal(msg string) {
	l.Error(msg)
	if l.async != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.async.Shutdown(ctx)
	}
	os.Exit(1)
}

// Compatibility methods for logrus-style formatting

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}
