package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/escola/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// setupTestTracer installs a recording tracer provider for the test.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func tracedRouter(enabled bool) *gin.Engine {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: enabled, ServiceName: "escola-test"}))
	router.Use(logger.GinMiddleware(zap.NewNop(), func() string { return "generated-id" }))
	router.Use(SpanEnricher())
	router.Use(IdempotencyKey())
	router.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/students/:id/payments", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })
	return router
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	tracedRouter(false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/abc", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_EnrichesServerSpan(t *testing.T) {
	sr := setupTestTracer(t)

	req := httptest.NewRequest(http.MethodGet, "/students/abc", nil)
	req.Header.Set(logger.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	tracedRouter(true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	span := findSpan(t, sr, "GET /students/:id")

	v, ok := attrValue(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", v.AsString())

	v, ok = attrValue(span, "student_id")
	require.True(t, ok)
	assert.Equal(t, "abc", v.AsString())

	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracing_MarksErrorResponses(t *testing.T) {
	sr := setupTestTracer(t)

	req := httptest.NewRequest(http.MethodPost, "/students/abc/payments", nil)
	req.Header.Set(IdempotencyKeyHeader, "receipt-1")
	w := httptest.NewRecorder()
	tracedRouter(true).ServeHTTP(w, req)

	span := findSpan(t, sr, "POST /students/:id/payments")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, http.StatusText(http.StatusUnprocessableEntity), span.Status().Description)

	v, ok := attrValue(span, "idempotent_request")
	require.True(t, ok)
	assert.True(t, v.AsBool())

	v, ok = attrValue(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "generated-id", v.AsString())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
}
