package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer exports tables as CSV or XLSX.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a new export writer instance
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger.With(slog.String("component", "exporter"))}
}

// WriteOptions configures export behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility

	// XLSX only
	SheetName      string
	NumericColumns []string
}

// Write exports in the given format.
func (w *Writer) Write(out io.Writer, format Format, options WriteOptions) error {
	switch format {
	case FormatCSV:
		return w.WriteCSV(out, options)
	case FormatXLSX:
		return w.WriteXLSX(out, options)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteCSV writes headers then records as CSV.
func (w *Writer) WriteCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile exports to a file, creating parent directories. The format is
// taken from the file extension, defaulting to CSV.
func (w *Writer) WriteFile(path string, options WriteOptions) error {
	format := FormatCSV
	if filepath.Ext(path) == FormatXLSX.Extension() {
		format = FormatXLSX
	}

	w.logger.Info("Writing export file",
		slog.String("file_path", path),
		slog.String("format", string(format)),
		slog.Int("record_count", len(options.Records)))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.Write(file, format, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
