package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	cfg := DefaultTracingConfig("test-service")
	cfg.TracerProvider = tp

	router := gin.New()
	router.Use(
		RequestID(),
		Tracing(cfg),
		SpanErrorMarker(),
		func(c *gin.Context) { c.Set(JWTViewerIDKey, "viewer-7") },
		TracingAttributeInjector(),
	)
	router.POST("/api/v1/loans/:id/actions/:action", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, sr
}

func TestTracing_EnrichesSpan(t *testing.T) {
	router, sr := newTracedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/loans/L1/actions/liquidate", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("viewer.id", "viewer-7"))
	assert.Contains(t, attrs, attribute.String("action.key", "liquidate"))
	assert.Contains(t, attrs, attribute.String("request_id", w.Header().Get(RequestIDHeader)))
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_SkipsProbes(t *testing.T) {
	router, sr := newTracedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
