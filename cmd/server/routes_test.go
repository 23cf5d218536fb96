package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinToRequest(t *testing.T) {
	body := `{"type":"message"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/line?hub.mode=subscribe", bytes.NewBufferString(body))
	req.Header.Set("X-Line-Signature", "sig")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	got, err := ginToRequest(c)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/webhooks/line", got.Path)
	assert.Equal(t, "subscribe", got.Query.Get("hub.mode"))
	assert.Equal(t, "sig", got.Header("X-Line-Signature"))
	assert.Equal(t, []byte(body), got.RawBody)
	assert.Equal(t, "message", got.Body["type"])
}

func TestGinToRequestNonJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/line", bytes.NewBufferString("not json"))

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	got, err := ginToRequest(c)
	require.NoError(t, err)
	assert.Nil(t, got.Body)
	assert.Equal(t, []byte("not json"), got.RawBody)
}

func TestWriteResponse(t *testing.T) {
	tests := []struct {
		name     string
		resp     *bot.Response
		wantCode int
		wantBody string
	}{
		{"nil response", nil, http.StatusOK, "ok"},
		{"string body", &bot.Response{Status: http.StatusOK, Body: "challenge-token"}, http.StatusOK, "challenge-token"},
		{"json body", &bot.Response{Status: http.StatusForbidden, Body: map[string]any{"error": "bad signature"}}, http.StatusForbidden, `{"error":"bad signature"}`},
		{"status only", &bot.Response{Status: http.StatusAccepted}, http.StatusAccepted, ""},
		{"zero status defaults to 200", &bot.Response{Body: "ok"}, http.StatusOK, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			writeResponse(c, tt.resp)
			// Flush gin's deferred status header, as the engine would
			// after the handler returns.
			c.Writer.WriteHeaderNow()

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestBasicAuth(t *testing.T) {
	router := gin.New()
	router.GET("/metrics", basicAuth("prometheus", "secret"), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	t.Run("missing credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("wrong credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("prometheus:wrong")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.SetBasicAuth("prometheus", "secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "metrics", w.Body.String())
	})
}

func TestExportSessionsStreamsGzippedJSON(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(0), time.Hour, logger.New("error"))
	sess := session.New()
	sess.State["step"] = "checkout"
	store.Write(context.Background(), session.Key("line", "U1"), sess)

	router := gin.New()
	router.GET("/sessions/export", exportSessions(store, logger.New("error")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	var sessions map[string]*session.Session
	require.NoError(t, json.Unmarshal(raw, &sessions))
	require.Contains(t, sessions, "line:U1")
	assert.Equal(t, "checkout", sessions["line:U1"].State["step"])
}
