package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patient-portal-api/internal/logger"
	"patient-portal-api/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags the request with an id (reusing the caller's if present) and
// stores a logger carrying it in the request context.
func RequestID(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), base, id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := zerolog.Ctx(c.Request.Context())
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("size_bytes", c.Writer.Size()).
			Msg("http request")
	}
}

// Recovery turns a panic into a logged 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("recovered from panic")
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Erreur serveur."})
	})
}

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Sentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		hub.Scope().SetTag("http.method", c.Request.Method)

		tx := sentry.StartTransaction(
			sentry.SetHubOnContext(c.Request.Context(), hub),
			fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
			sentry.ContinueFromRequest(c.Request),
		)
		defer func() {
			tx.Status = sentry.HTTPtoSpanStatus(c.Writer.Status())
			tx.Finish()
		}()
		c.Request = c.Request.WithContext(tx.Context())
		c.Next()
	}
}

// ErrorReporter sends errors attached to server-error responses to Sentry.
func ErrorReporter() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Status() < 500 {
			return
		}
		hub := sentry.GetHubFromContext(c.Request.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		for _, ginErr := range c.Errors {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("endpoint", c.FullPath())
				scope.SetExtra("method", c.Request.Method)
				scope.SetExtra("status", c.Writer.Status())
				scope.SetExtra("headers", safeHeaders(c.Request.Header))
				hub.CaptureException(ginErr.Err)
			})
		}
	}
}

func safeHeaders(h http.Header) map[string]any {
	safe := make(map[string]any, len(h))
	for k, v := range h {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
			safe[k] = "[FILTERED]"
		} else {
			safe[k] = v
		}
	}
	return safe
}
