package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(log, func() string { return "generated-id" }))
	r.Use(Recovery(log))
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r
}

func findEntry(t *testing.T, logs *observer.ObservedLogs, msg string) observer.LoggedEntry {
	t.Helper()
	entries := logs.FilterMessage(msg).All()
	require.NotEmpty(t, entries, "no %q entry", msg)
	return entries[0]
}

func TestGinMiddleware_GeneratesRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	r := newTestRouter(zap.New(core))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?year=2025", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "generated-id", w.Body.String())
	assert.Equal(t, "generated-id", w.Header().Get(RequestIDHeader))

	entry := findEntry(t, recorded, "HTTP Request")
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "generated-id", fields["request_id"])
	assert.Equal(t, "/ok", fields["path"])
	assert.Equal(t, "year=2025", fields["query"])
}

func TestGinMiddleware_KeepsIncomingRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	r := newTestRouter(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
	entry := findEntry(t, recorded, "HTTP Request")
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "client-id", entry.ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	r := newTestRouter(zap.New(core))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entry := findEntry(t, recorded, "Panic recovered")
	assert.Equal(t, "generated-id", entry.ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, findEntry(t, recorded, "HTTP Request").Level)
}
