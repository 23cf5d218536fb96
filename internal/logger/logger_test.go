package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/duskbyte/courier-go/internal/ctxutil"
)

func parseLogLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log line %q: %v", line, err)
	}
	return entry
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.Info("hello")

	entry := parseLogLine(t, strings.TrimSpace(buf.String()))
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("hidden")
	log.Warn("visible")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	entry := parseLogLine(t, out)
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want warning", entry["level"])
	}
}

func TestWithField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.WithField("driver", "memory").WithModule("session").Info("ready")

	entry := parseLogLine(t, strings.TrimSpace(buf.String()))
	if entry["driver"] != "memory" {
		t.Errorf("driver = %v, want memory", entry["driver"])
	}
	if entry["module"] != "session" {
		t.Errorf("module = %v, want session", entry["module"])
	}
}

func TestContextValuesAttached(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithRequestID(context.Background(), "req-1")
	ctx = ctxutil.WithSessionKey(ctx, "telegram:42")
	ctx = ctxutil.WithPlatform(ctx, "telegram")

	log.InfoContext(ctx, "dispatched")

	entry := parseLogLine(t, strings.TrimSpace(buf.String()))
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
	if entry["session_key"] != "telegram:42" {
		t.Errorf("session_key = %v, want telegram:42", entry["session_key"])
	}
	if entry["platform"] != "telegram" {
		t.Errorf("platform = %v, want telegram", entry["platform"])
	}
}

func TestShutdownWithoutRemoteSink(t *testing.T) {
	t.Parallel()

	log := NewWithWriter("info", &bytes.Buffer{})
	if err := log.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}
