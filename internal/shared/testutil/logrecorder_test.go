package testutil

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failSpy counts failures instead of failing the running test.
type failSpy struct {
	testing.TB
	failures int
}

func (s *failSpy) Helper()                        {}
func (s *failSpy) Name() string                   { return "spy" }
func (s *failSpy) Errorf(string, ...interface{}) { s.failures++ }

func TestLogRecorder(t *testing.T) {
	t.Run("captures every level", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		logger.Debug("parsed header")
		logger.Info("dataset loaded", slog.String("key", "abc"))
		logger.Error("upload failed", slog.Int("code", 500))

		require.Equal(t, 3, rec.Count())
		assert.True(t, rec.ContainsMessage("dataset loaded"))
		assert.False(t, rec.ContainsMessage("exported"))
		assert.Len(t, rec.ByLevel(slog.LevelError), 1)
		assert.Equal(t, "abc", rec.Records()[1].Attrs["key"])
		AssertLogContains(t, rec, slog.LevelDebug, "header")
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		logger.With(slog.String("component", "dataset_service")).Info("normalized")
		logger.WithGroup("report").With(slog.String("file", "zomato.csv")).Info("rows", slog.Int("rows_out", 4))

		assert.Equal(t, 2, rec.Count())
		AssertLogAttr(t, rec, "component", "dataset_service")
		AssertLogAttr(t, rec, "report.file", "zomato.csv")
		AssertLogAttr(t, rec, "report.rows_out", int64(4))
	})

	t.Run("failed assertions report", func(t *testing.T) {
		_, rec := NewTestLogger(t)
		spy := &failSpy{}
		assert.False(t, AssertLogContains(spy, rec, slog.LevelInfo, "missing"))
		assert.False(t, AssertLogAttr(spy, rec, "k", "v"))
		assert.Equal(t, 2, spy.failures)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.Info("concurrent log", slog.Int("goroutine", n))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, rec.Count())
	})
}

func TestSampleCSV(t *testing.T) {
	records, err := csv.NewReader(bytes.NewReader(SampleCSV())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(SampleRestaurants)+1)
	assert.Equal(t, "1,200", records[7][5], "quoted cost survives")
}
