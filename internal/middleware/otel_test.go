package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"platepulse/internal/infrastructure"
	"platepulse/internal/shared/testutil"
)

func TestOTelMiddleware_RecordsRoute(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
	}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	otelMW, err := NewOTelMiddleware(providers)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(otelMW.Handler)
	r.Get("/api/charts/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/charts/ratings", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()
	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), `route="/api/charts/{name}"`)
	assert.Contains(t, string(body), `status_code="418"`)
}

func TestOTelMiddleware_KeepsTraceID(t *testing.T) {
	otelMW, err := NewOTelMiddleware(&infrastructure.OTelProviders{})
	require.NoError(t, err)

	var traceID string
	h := RequestID(otelMW.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-1", traceID, "without a recording span the request id stays the trace id")
}

func TestOTelMiddleware_NamesSpanByRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	otelMW, err := NewOTelMiddleware(&infrastructure.OTelProviders{Tracer: tp.Tracer("test")})
	require.NoError(t, err)

	var traceID string
	r := chi.NewRouter()
	r.Use(otelMW.Handler)
	r.Get("/charts/{name}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/charts/rating-distribution", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /charts/{name}", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)
}

func TestTraceMiddleware(t *testing.T) {
	called := false
	h := TraceMiddleware("dataset.export")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dataset/export", nil))
	assert.True(t, called)
}
