package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigWatcherReloadsLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyscribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644))

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cw.Close()

	assert.Equal(t, "info", cw.GetCurrentConfig().Logging.Level)
	updates := cw.Subscribe()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	// A truncating write can surface an intermediate empty file first.
	deadline := time.After(5 * time.Second)
	for level := ""; level != "debug"; {
		select {
		case c := <-updates:
			level = c.Logging.Level
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
	assert.Equal(t, "debug", cw.GetCurrentConfig().Logging.Level)
}

func TestConfigWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyscribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644))

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cw.Close()

	cw.handleConfigChange() // valid, unchanged
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))
	cw.handleConfigChange()

	assert.Equal(t, "warn", cw.GetCurrentConfig().Logging.Level)
}

func TestNewConfigWatcherRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyscribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 70000\n"), 0644))

	_, err := NewConfigWatcher(path, zaptest.NewLogger(t))
	require.Error(t, err)
}
