package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duskbyte/courier-go/internal/bot"
	"github.com/duskbyte/courier-go/internal/config"
	"github.com/duskbyte/courier-go/internal/logger"
	"github.com/duskbyte/courier-go/internal/session"
)

func setupRoutes(engine *gin.Engine, bots []*platformBot, store *session.Store, registry *prometheus.Registry, cfg *config.Config, log *logger.Logger) {
	rootHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":  cfg.ServerName,
			"instance": cfg.InstanceID,
			"status":   "ok",
		})
	}
	engine.GET("/", rootHandler)
	engine.HEAD("/", rootHandler)

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	engine.GET("/ready", func(c *gin.Context) {
		if err := store.Init(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "platforms": len(bots)})
	})

	for _, pb := range bots {
		handler := webhookHandler(pb, cfg.WebhookTimeout, log)
		path := "/webhooks/" + pb.name
		engine.POST(path, handler)
		// Messenger and Facebook answer the subscription handshake on GET.
		engine.GET(path, handler)
	}

	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsAuthEnabled {
		engine.GET("/metrics", basicAuth(cfg.MetricsUsername, cfg.MetricsPassword), metricsHandler)
	} else {
		engine.GET("/metrics", metricsHandler)
	}

	if cfg.MetricsAuthEnabled {
		engine.GET("/sessions/export", basicAuth(cfg.MetricsUsername, cfg.MetricsPassword), exportSessions(store, log))
	}
}

// webhookHandler adapts one HTTP request into the dispatch pipeline and
// renders whatever response the pipeline produced.
func webhookHandler(pb *platformBot, timeout time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := ginToRequest(c)
		if err != nil {
			log.WithModule(pb.name).WithError(err).Warn("Unreadable webhook request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		resp, err := pb.bot.HandleRequest(ctx, req)
		if err != nil {
			log.WithModule(pb.name).WithError(err).Error("Webhook dispatch failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		writeResponse(c, resp)
	}
}

// ginToRequest converts a gin request into the transport-agnostic shape.
func ginToRequest(c *gin.Context) (*bot.Request, error) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	req := &bot.Request{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		Query:   c.Request.URL.Query(),
		Headers: c.Request.Header,
		RawBody: rawBody,
		URL:     c.Request.URL.String(),
	}
	if len(rawBody) > 0 {
		var body map[string]any
		if json.Unmarshal(rawBody, &body) == nil {
			req.Body = body
		}
	}
	if params := c.Params; len(params) > 0 {
		req.Params = make(map[string]string, len(params))
		for _, p := range params {
			req.Params[p.Key] = p.Value
		}
	}
	return req, nil
}

func writeResponse(c *gin.Context, resp *bot.Response) {
	if resp == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	switch body := resp.Body.(type) {
	case nil:
		c.Status(status)
	case string:
		c.String(status, "%s", body)
	case []byte:
		c.Data(status, "application/octet-stream", body)
	default:
		c.JSON(status, body)
	}
}

// exportSessions streams every live session as gzipped JSON. Intended
// for operator debugging, not bulk migration.
func exportSessions(store *session.Store, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := store.All(c.Request.Context())

		c.Header("Content-Type", "application/json")
		c.Header("Content-Encoding", "gzip")
		c.Status(http.StatusOK)

		gz := gzip.NewWriter(c.Writer)
		if err := json.NewEncoder(gz).Encode(sessions); err != nil {
			log.WithModule("export").WithError(err).Error("Session export failed")
		}
		if err := gz.Close(); err != nil {
			log.WithModule("export").WithError(err).Error("Session export flush failed")
		}
	}
}

func basicAuth(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="restricted"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
