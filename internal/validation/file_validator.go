package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnsupportedFile is returned for paths whose extension the command
// cannot read or write.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ListingExtensions are accepted for listings input. No extension is fine
// too; the reader sniffs the content.
var ListingExtensions = []string{"", ".csv", ".txt", ".xlsx"}

// ExportExtensions are the formats the exporter writes.
var ExportExtensions = []string{".csv", ".xlsx"}

// FileValidator checks the local paths given to the command line tools.
// Every rejection is logged at error level as "file rejected" with the
// path and reason.
type FileValidator struct {
	logger *slog.Logger
}

func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

func (v *FileValidator) reject(path, reason string, err error) error {
	v.logger.Error("file rejected",
		slog.String("path", path),
		slog.String("reason", reason),
		slog.String("error", err.Error()))
	return err
}

// ValidateListingFile accepts an existing, readable listings file with a
// known extension. Office lock files (~$name.xlsx) are refused.
func (v *FileValidator) ValidateListingFile(path string) error {
	if err := checkExtension(path, ListingExtensions); err != nil {
		return v.reject(path, "extension", err)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return v.reject(path, "lock_file", fmt.Errorf("file %s is a temporary Excel file", path))
	}
	if err := checkReadable(path); err != nil {
		return v.reject(path, "unreadable", err)
	}
	v.logger.Debug("listings file accepted", slog.String("path", path))
	return nil
}

// ValidateExportPath accepts a .csv or .xlsx target whose directory exists
// (it is created if needed) and is writable. The target itself is not
// touched.
func (v *FileValidator) ValidateExportPath(path string) error {
	if err := checkExtension(path, ExportExtensions); err != nil {
		return v.reject(path, "extension", err)
	}
	if err := ensureWritableDir(filepath.Dir(path)); err != nil {
		return v.reject(path, "output_directory", err)
	}
	return nil
}

func checkExtension(path string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(allowed, ext) {
		return nil
	}
	return fmt.Errorf("%w: %s (extension %q)", ErrUnsupportedFile, path, ext)
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("file %s does not exist", path)
	case err != nil:
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	return f.Close()
}

// ensureWritableDir creates dir and proves it writable with a temp file
// that is removed again.
func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}
