package main

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/duskbyte/courier-go/internal/ctxutil"
	"github.com/duskbyte/courier-go/internal/logger"
)

// securityHeadersMiddleware sets baseline security headers on every
// response.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// requestIDMiddleware assigns each request an ID, propagates it through
// the request context, and echoes it back in the response.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// loggingMiddleware logs one line per request with latency and status.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(map[string]any{
			"method":      c.Request.Method,
			"path":        path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		})
		if requestID, ok := ctxutil.GetRequestID(c.Request.Context()); ok {
			entry = entry.WithRequestID(requestID)
		}

		msg := "Request handled"
		switch {
		case status >= 500:
			entry.Error(msg)
		case status >= 400:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}

// sentryMiddleware reports panics and attaches request scope to Sentry
// events.
func sentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}
