package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"platepulse/internal/auth"
	"platepulse/internal/config"
	"platepulse/internal/dataset"
	"platepulse/internal/exporter"
	"platepulse/internal/infrastructure"
	"platepulse/internal/insights"
)

// Upload outcomes recorded on the uploads counter.
const (
	OutcomeSuccess         = "success"
	OutcomeMissingColumn   = "missing_column"
	OutcomeHeaderCollision = "header_collision"
	OutcomeEmpty           = "empty"
	OutcomeMalformed       = "malformed"
	OutcomeTooLarge        = "too_large"
	OutcomeUnsupported     = "unsupported"
	OutcomeError           = "error"
)

// uploadExtensions are the file extensions accepted by Upload. An empty
// extension is allowed; the reader sniffs the content.
var uploadExtensions = map[string]struct{}{
	"":      {},
	".csv":  {},
	".txt":  {},
	".xlsx": {},
}

// SessionBinder is the part of the session store the dataset service needs.
type SessionBinder interface {
	Get(id string) (auth.Session, error)
	AttachDataset(id, key string) (string, error)
}

// DatasetOptions sizes uploads and views.
type DatasetOptions struct {
	MaxBytes      int64
	Encoding      string
	PreviewRows   int
	HistogramBins int
	TopTypes      int
}

// DatasetOptionsFromConfig reads the upload and dashboard sections.
func DatasetOptionsFromConfig(cfg *config.Config) DatasetOptions {
	return DatasetOptions{
		MaxBytes:      cfg.Upload.MaxBytes,
		Encoding:      cfg.Upload.Encoding,
		PreviewRows:   cfg.Dashboard.PreviewRows,
		HistogramBins: cfg.Dashboard.HistogramBins,
		TopTypes:      cfg.Dashboard.TopTypes,
	}
}

// DatasetInfo describes the dataset a session is viewing.
type DatasetInfo struct {
	Filename    string           `json:"filename,omitempty"`
	Fingerprint string           `json:"fingerprint"`
	CacheHit    bool             `json:"cache_hit"`
	Columns     []string         `json:"columns"`
	Summary     insights.Summary `json:"summary"`
}

// DatasetService ingests uploads and serves the dashboard views of the
// session's current dataset.
type DatasetService struct {
	cache    *dataset.Cache
	sessions SessionBinder
	exporter *exporter.Writer
	metrics  *infrastructure.DatasetMetrics
	tracer   trace.Tracer
	logger   *slog.Logger

	mu   sync.RWMutex
	opts DatasetOptions
}

// NewDatasetService creates a dataset service. metrics may be nil.
func NewDatasetService(cache *dataset.Cache, sessions SessionBinder, metrics *infrastructure.DatasetMetrics, opts DatasetOptions, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "dataset_service")
	logger.Info("DatasetService initialized",
		slog.Int64("max_bytes", opts.MaxBytes),
		slog.String("encoding", opts.Encoding))

	return &DatasetService{
		cache:    cache,
		sessions: sessions,
		exporter: exporter.NewWriter(logger),
		metrics:  metrics,
		tracer:   otel.Tracer(infrastructure.InstrumentationName),
		logger:   logger,
		opts:     opts,
	}
}

// SetOptions replaces the upload and view options.
func (s *DatasetService) SetOptions(opts DatasetOptions) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// Options returns the current options.
func (s *DatasetService) Options() DatasetOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Upload normalizes content and makes it the session's current dataset. The
// dataset the session viewed before is released. Identical uploads from any
// session share one normalized table.
func (s *DatasetService) Upload(ctx context.Context, sessionID, filename string, content []byte) (*DatasetInfo, error) {
	opts := s.Options()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "dataset.upload", trace.WithAttributes(
		attribute.String("dataset.filename", filename),
		attribute.Int("dataset.bytes", len(content)),
	))
	defer span.End()

	fail := func(err error) (*DatasetInfo, error) {
		outcome := uploadOutcome(err)
		s.metrics.RecordUpload(ctx, infrastructure.UploadResult{Outcome: outcome, Duration: time.Since(start)})
		infrastructure.RecordError(ctx, err)
		span.SetStatus(codes.Error, outcome)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("filename", filename),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()))
		return nil, err
	}

	if _, ok := uploadExtensions[strings.ToLower(filepath.Ext(filename))]; !ok {
		return fail(fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename)))
	}
	if len(content) == 0 {
		return fail(ErrEmptyUpload)
	}
	if opts.MaxBytes > 0 && int64(len(content)) > opts.MaxBytes {
		return fail(fmt.Errorf("%w: %d bytes exceeds %d", ErrUploadTooLarge, len(content), opts.MaxBytes))
	}

	key := dataset.Fingerprint(content)
	span.SetAttributes(attribute.String("dataset.fingerprint", key))

	table, hit, err := s.cache.Acquire(ctx, key, func(ctx context.Context) (*dataset.CleanTable, error) {
		return s.normalize(ctx, content, opts.Encoding)
	})
	if err != nil {
		return fail(err)
	}

	previous, err := s.sessions.AttachDataset(sessionID, key)
	if err != nil {
		s.cache.Release(key)
		return fail(err)
	}
	if previous != "" {
		s.cache.Release(previous)
		infrastructure.AddSpanEvent(ctx, "dataset.replaced", attribute.String("dataset.previous", previous))
	}

	report := table.Report
	s.metrics.RecordUpload(ctx, infrastructure.UploadResult{
		Outcome:       OutcomeSuccess,
		CacheHit:      hit,
		RowsIn:        report.RowsIn,
		RowsOut:       report.RowsOut,
		DroppedMarker: report.DroppedMarker,
		DroppedRating: report.DroppedRating,
		DroppedCost:   report.DroppedCost,
		Duration:      time.Since(start),
	})
	span.SetAttributes(
		attribute.Bool("dataset.cache_hit", hit),
		attribute.Int("dataset.rows_in", report.RowsIn),
		attribute.Int("dataset.rows_out", report.RowsOut),
	)
	s.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("filename", filename),
		slog.String("fingerprint", key[:12]),
		slog.Bool("cache_hit", hit),
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("dropped", report.Dropped()),
		slog.Duration("duration", time.Since(start)))

	return &DatasetInfo{
		Filename:    filename,
		Fingerprint: key,
		CacheHit:    hit,
		Columns:     table.Columns,
		Summary:     insights.Summarize(table),
	}, nil
}

func (s *DatasetService) normalize(ctx context.Context, content []byte, encoding string) (*dataset.CleanTable, error) {
	_, span := s.tracer.Start(ctx, "dataset.normalize")
	defer span.End()

	raw, err := dataset.ReadUpload(content, dataset.ReadOptions{Encoding: encoding})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}
	table, err := dataset.Normalize(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("dataset.rows_in", table.Report.RowsIn),
		attribute.Int("dataset.rows_out", table.Report.RowsOut),
	)
	return table, nil
}

// Current returns the session's current dataset, or ErrNoDataset.
func (s *DatasetService) Current(ctx context.Context, sessionID string) (*dataset.CleanTable, error) {
	table, _, err := s.current(sessionID)
	return table, err
}

func (s *DatasetService) current(sessionID string) (*dataset.CleanTable, string, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, "", err
	}
	if session.DatasetKey == "" {
		return nil, "", ErrNoDataset
	}
	table, ok := s.cache.Peek(session.DatasetKey)
	if !ok {
		return nil, "", ErrNoDataset
	}
	return table, session.DatasetKey, nil
}

// Info describes the session's current dataset.
func (s *DatasetService) Info(ctx context.Context, sessionID string) (*DatasetInfo, error) {
	table, key, err := s.current(sessionID)
	if err != nil {
		return nil, err
	}
	return &DatasetInfo{
		Fingerprint: key,
		CacheHit:    true,
		Columns:     table.Columns,
		Summary:     insights.Summarize(table),
	}, nil
}

// Preview returns the first rows of the current dataset. rows <= 0 uses the
// configured preview size.
func (s *DatasetService) Preview(ctx context.Context, sessionID string, rows int) (insights.PreviewView, error) {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return insights.PreviewView{}, err
	}
	if rows <= 0 {
		rows = s.Options().PreviewRows
	}
	return insights.Preview(table, rows), nil
}

// RatingHistogram returns the rating distribution of the current dataset.
func (s *DatasetService) RatingHistogram(ctx context.Context, sessionID string) (insights.Histogram, error) {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return insights.Histogram{}, err
	}
	return insights.RatingHistogram(table, s.Options().HistogramBins), nil
}

// OnlineOrdering returns the online ordering split. A dataset without the
// column yields an *insights.OptionalColumnError.
func (s *DatasetService) OnlineOrdering(ctx context.Context, sessionID string) ([]insights.Share, error) {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return insights.OnlineOrderingShare(table)
}

// CostVsRating returns the scatter points of the current dataset.
func (s *DatasetService) CostVsRating(ctx context.Context, sessionID string) ([]insights.Point, error) {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return insights.CostVsRating(table), nil
}

// ListingTypes returns the most common restaurant types. A dataset without
// usable type data yields an *insights.OptionalColumnError.
func (s *DatasetService) ListingTypes(ctx context.Context, sessionID string) ([]insights.Share, error) {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return insights.TopListingTypes(table, s.Options().TopTypes)
}

// Describe returns summary statistics per column.
func (s *DatasetService) Describe(ctx context.Context, sessionID string) ([][]string, error) {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return insights.Describe(table)
}

// Export streams the current dataset to out in the given format.
func (s *DatasetService) Export(ctx context.Context, sessionID string, format exporter.Format, out io.Writer) error {
	table, err := s.Current(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.exporter.Write(out, format, ExportOptions(table)); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	s.logger.InfoContext(ctx, "dataset exported",
		slog.String("format", string(format)),
		slog.Int("rows", table.Len()))
	return nil
}

// ExportOptions lays out a clean table for the exporter.
func ExportOptions(table *dataset.CleanTable) exporter.WriteOptions {
	records := make([][]string, 0, table.Len())
	for _, r := range table.Rows {
		records = append(records, r.Cells)
	}
	return exporter.WriteOptions{
		Headers:        table.Columns,
		Records:        records,
		BOMPrefix:      true,
		NumericColumns: []string{dataset.ColumnRating, dataset.ColumnCost},
	}
}

// SessionEvictHook releases the dataset held by a session when the session
// ends, whether by logout, expiry or LRU pressure.
func SessionEvictHook(cache *dataset.Cache, metrics *infrastructure.DatasetMetrics, logger *slog.Logger) auth.EvictFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(s auth.Session) {
		if s.DatasetKey != "" {
			cache.Release(s.DatasetKey)
		}
		metrics.RecordSessions(context.Background(), -1)
		logger.Debug("session released",
			slog.String("username", s.Username),
			slog.Int("cached_datasets", cache.Len()))
	}
}

func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, dataset.ErrMissingColumn):
		return OutcomeMissingColumn
	case errors.Is(err, dataset.ErrHeaderCollision):
		return OutcomeHeaderCollision
	case errors.Is(err, dataset.ErrEmptyInput), errors.Is(err, ErrEmptyUpload):
		return OutcomeEmpty
	case errors.Is(err, dataset.ErrMalformedInput), errors.Is(err, dataset.ErrUnknownEncoding):
		return OutcomeMalformed
	case errors.Is(err, ErrUploadTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, ErrUnsupportedFile):
		return OutcomeUnsupported
	default:
		return OutcomeError
	}
}
