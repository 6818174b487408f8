// Package middleware provides the HTTP middleware of the billing API.
package middleware

import (
	"net/http"

	"github.com/escola/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request IDs copied from headers into spans and responses
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns the otelgin middleware, or a pass-through when tracing is off.
// The span name is "METHOD route", e.g. "POST /api/v1/students/:id/payments".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher adds billing attributes to the server span and marks error
// responses. It must run after Tracing and after the logging middleware that
// assigns request IDs.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if id := logger.GetRequestID(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", truncate(id, MaxRequestIDLength)))
		}
		if studentID := c.Param("id"); studentID != "" {
			span.SetAttributes(attribute.String("student_id", studentID))
		}

		c.Next()

		// The idempotency key is attached by a later middleware.
		if key := logger.GetIdempotencyKey(c.Request.Context()); key != "" {
			span.SetAttributes(attribute.Bool("idempotent_request", true))
		}
		markSpanStatus(span, c.Writer.Status())
	}
}

func markSpanStatus(span trace.Span, statusCode int) {
	if statusCode < http.StatusBadRequest {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	span.SetStatus(codes.Error, http.StatusText(statusCode))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
