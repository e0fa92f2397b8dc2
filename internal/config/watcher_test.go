package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, "logging:\n  level: info\n")
	reloaded := make(chan *Config, 4)

	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	require.NoError(t, w.Stop())
}

func TestWatcher_RejectsInvalidConfig(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, "logging:\n  level: info\n")
	reloaded := make(chan *Config, 4)

	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config applied: %+v", cfg.Logging)
	case <-time.After(750 * time.Millisecond):
	}

	require.NoError(t, w.Stop())
}

func TestWatcher_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, err := NewWatcher(writeConfig(t, ""), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second start is a no-op")
	cancel()

	require.NoError(t, w.Stop())
}

func TestNewWatcher_NeedsPath(t *testing.T) {
	_, err := NewWatcher("", nil, nil)
	assert.Error(t, err)
}
