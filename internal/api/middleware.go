package api

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/llegapo/scraper/internal/metrics"
	"github.com/llegapo/scraper/internal/reqctx"
	"github.com/llegapo/scraper/pkg/models"
)

// maxRequestIDLength bounds inbound request ids that are echoed back
const maxRequestIDLength = 128

// RequestIDMiddleware propagates X-Request-ID, generating one when the
// header is missing or oversized, and stores it in the request context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(reqctx.HeaderName))
		if len(id) > maxRequestIDLength {
			id = ""
		}

		ctx := reqctx.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		id = reqctx.GetRequestContext(ctx).RequestID
		c.Set("request_id", id)
		c.Header(reqctx.HeaderName, id)

		c.Next()
	}
}

// LoggerMiddleware writes one structured access log line per request
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger := reqctx.Logger(c.Request.Context())
		event := logger.Info()
		if len(c.Errors) > 0 {
			event = logger.Error().Strs("errors", c.Errors.Errors())
		}

		event = event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if query != "" {
			event = event.Str("query", query)
		}
		if !strings.HasPrefix(path, "/healthz") {
			event = event.Str("user_agent", c.Request.UserAgent())
		}
		event.Msg("HTTP request")
	}
}

// MetricsMiddleware records request counts and latencies by route
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// RecoveryMiddleware turns a handler panic into a failure envelope
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger := reqctx.Logger(c.Request.Context())
		logger.Error().
			Interface("panic", recovered).
			Bytes("stack", debug.Stack()).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic in handler")

		c.AbortWithStatusJSON(http.StatusInternalServerError, models.Envelope{
			Success: false,
			Error:   "internal server error",
		})
	})
}
