package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platepulse/internal/shared/testutil"
)

func TestFileValidator_ValidateListingFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
		errorIs       error
	}{
		{
			name: "csv file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "zomato.csv")
				require.NoError(t, os.WriteFile(path, testutil.SampleCSV(), 0644))
				return path
			},
		},
		{
			name: "file without extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "zomato")
				require.NoError(t, os.WriteFile(path, testutil.SampleCSV(), 0644))
				return path
			},
		},
		{
			name: "upper case extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "ZOMATO.CSV")
				require.NoError(t, os.WriteFile(path, testutil.SampleCSV(), 0644))
				return path
			},
		},
		{
			name: "non-existent file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "listings.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "zomato.json")
				require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
				return path
			},
			wantErr: true,
			errorIs: ErrUnsupportedFile,
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$zomato.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("lock"), 0644))
				return path
			},
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			validator := NewFileValidator(logger)

			err := validator.ValidateListingFile(tt.setupFunc(t))

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}
			if tt.errorIs != nil {
				assert.ErrorIs(t, err, tt.errorIs)
			}
		})
	}
}

func TestFileValidator_ValidateExportPath(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	validator := NewFileValidator(logger)

	t.Run("creates the parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "nested", "clean.xlsx")

		require.NoError(t, validator.ValidateExportPath(path))
		assert.DirExists(t, filepath.Dir(path))
		assert.NoFileExists(t, path)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Empty(t, entries, "the write probe is removed")
	})

	t.Run("rejects other formats", func(t *testing.T) {
		err := validator.ValidateExportPath(filepath.Join(t.TempDir(), "clean.parquet"))
		assert.ErrorIs(t, err, ErrUnsupportedFile)
		testutil.AssertLogContains(t, handler, slog.LevelError, "file rejected")
		testutil.AssertLogAttr(t, handler, "reason", "extension")
	})

	t.Run("parent is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "taken")
		require.NoError(t, os.WriteFile(file, nil, 0644))

		err := validator.ValidateExportPath(filepath.Join(file, "clean.csv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create output directory")
		testutil.AssertLogAttr(t, handler, "reason", "output_directory")
	})
}

func TestNewFileValidator_NilLogger(t *testing.T) {
	assert.NotNil(t, NewFileValidator(nil).logger)
}
