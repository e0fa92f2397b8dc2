package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Drop reasons recorded on dataset_rows_dropped_total.
const (
	DropReasonMarker = "marker"
	DropReasonRating = "rating"
	DropReasonCost   = "cost"
)

// DatasetMetrics holds the dashboard's application metrics.
type DatasetMetrics struct {
	UploadsTotal      metric.Int64Counter
	RowsIn            metric.Int64Counter
	RowsOut           metric.Int64Counter
	RowsDropped       metric.Int64Counter
	NormalizeDuration metric.Float64Histogram
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	LoginAttempts     metric.Int64Counter
	ActiveSessions    metric.Int64UpDownCounter
}

// NewDatasetMetrics registers the application instruments on meter. A nil
// meter yields no-op instruments.
func NewDatasetMetrics(meter metric.Meter) (*DatasetMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(InstrumentationName)
	}
	m := &DatasetMetrics{}
	var err error

	if m.UploadsTotal, err = meter.Int64Counter(
		"dataset_uploads_total",
		metric.WithDescription("Dataset uploads by result"),
	); err != nil {
		return nil, err
	}
	if m.RowsIn, err = meter.Int64Counter(
		"dataset_rows_in_total",
		metric.WithDescription("Rows read from uploaded datasets"),
	); err != nil {
		return nil, err
	}
	if m.RowsOut, err = meter.Int64Counter(
		"dataset_rows_out_total",
		metric.WithDescription("Rows kept after normalization"),
	); err != nil {
		return nil, err
	}
	if m.RowsDropped, err = meter.Int64Counter(
		"dataset_rows_dropped_total",
		metric.WithDescription("Rows dropped during normalization by reason"),
	); err != nil {
		return nil, err
	}
	if m.NormalizeDuration, err = meter.Float64Histogram(
		"dataset_normalize_duration_seconds",
		metric.WithDescription("Time spent reading and normalizing a dataset"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.CacheHits, err = meter.Int64Counter(
		"dataset_cache_hits_total",
		metric.WithDescription("Uploads served from the normalized dataset cache"),
	); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter(
		"dataset_cache_misses_total",
		metric.WithDescription("Uploads that had to be normalized"),
	); err != nil {
		return nil, err
	}
	if m.LoginAttempts, err = meter.Int64Counter(
		"auth_login_attempts_total",
		metric.WithDescription("Login attempts by result"),
	); err != nil {
		return nil, err
	}
	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"auth_active_sessions",
		metric.WithDescription("Sessions currently alive"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// UploadResult carries what one upload did for RecordUpload.
type UploadResult struct {
	Outcome       string
	CacheHit      bool
	RowsIn        int
	RowsOut       int
	DroppedMarker int
	DroppedRating int
	DroppedCost   int
	Duration      time.Duration
}

// RecordUpload records the metrics for one upload.
func (m *DatasetMetrics) RecordUpload(ctx context.Context, r UploadResult) {
	if m == nil {
		return
	}
	m.UploadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", r.Outcome)))
	if r.Outcome != "success" {
		return
	}
	if r.CacheHit {
		m.CacheHits.Add(ctx, 1)
		return
	}
	m.CacheMisses.Add(ctx, 1)
	m.RowsIn.Add(ctx, int64(r.RowsIn))
	m.RowsOut.Add(ctx, int64(r.RowsOut))
	for reason, n := range map[string]int{
		DropReasonMarker: r.DroppedMarker,
		DropReasonRating: r.DroppedRating,
		DropReasonCost:   r.DroppedCost,
	} {
		if n > 0 {
			m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
		}
	}
	m.NormalizeDuration.Record(ctx, r.Duration.Seconds())
}

// RecordLogin records one login attempt.
func (m *DatasetMetrics) RecordLogin(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordSessions adjusts the live session gauge.
func (m *DatasetMetrics) RecordSessions(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

// HTTPMetrics holds the request instruments recorded by the HTTP middleware.
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the HTTP instruments on meter. A nil meter yields
// no-op instruments.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(InstrumentationName)
	}
	m := &HTTPMetrics{}
	var err error

	if m.RequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("HTTP requests by method, route and status"),
	); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.ActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Requests currently being served"),
	); err != nil {
		return nil, err
	}
	return m, nil
}
