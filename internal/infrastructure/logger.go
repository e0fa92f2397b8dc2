package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"platepulse/internal/config"
)

// level is shared by every logger built here, so SetLevel (and the config
// watcher) reaches all of them at once.
var level = new(slog.LevelVar)

var (
	processMu     sync.Mutex
	processLogger *slog.Logger
	logFile       *os.File
	startDefault  = slog.Default()
)

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Later calls return the first logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	processMu.Lock()
	defer processMu.Unlock()

	if processLogger != nil {
		return processLogger, nil
	}

	level.Set(parseLogLevel(cfg.Level))
	out, file, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}

	processLogger = NewLoggerWithWriter(out, cfg.Format, cfg.Development)
	logFile = file
	slog.SetDefault(processLogger)
	return processLogger, nil
}

// ProcessLogger returns the logger set up by InitializeLogger, or the slog
// default before that.
func ProcessLogger() *slog.Logger {
	processMu.Lock()
	defer processMu.Unlock()
	if processLogger == nil {
		return slog.Default()
	}
	return processLogger
}

// SetLevel accepts debug, info, warn (or warning) and error. Anything else
// means info.
func SetLevel(name string) {
	level.Set(parseLogLevel(name))
}

func CurrentLevel() slog.Level {
	return level.Level()
}

// CloseLogFile closes the file opened for output "file" or "both".
func CloseLogFile() error {
	processMu.Lock()
	defer processMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// NewLoggerWithWriter builds a logger on w with the shared level. Format
// "text" gives key=value lines, anything else JSON.
func NewLoggerWithWriter(w io.Writer, format string, addSource bool) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: addSource, Level: level}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(traceHandler{h})
}

func logOutput(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return os.Stdout, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if mode == "both" {
		return io.MultiWriter(os.Stdout, f), f, nil
	}
	return f, f, nil
}

func parseLogLevel(name string) slog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// traceHandler stamps records with the request trace id and, inside an
// OpenTelemetry span, the span id.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

func resetLogger() {
	_ = CloseLogFile()
	processMu.Lock()
	if processLogger != nil {
		slog.SetDefault(startDefault)
	}
	processLogger = nil
	processMu.Unlock()
	level.Set(slog.LevelInfo)
}
