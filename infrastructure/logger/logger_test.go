package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Outputs: []string{"stdout"}})
	require.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l.Level())

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, l.SetLevel("nope"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.log")
	l, err := New(Config{Level: "info", Outputs: []string{"file"}, OutputFile: path, Format: "json"})
	require.NoError(t, err)

	l.LogChannel("channel_open", map[string]interface{}{"url": "ws://x"})
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event":"channel_open"`)
	assert.Contains(t, string(raw), `"url":"ws://x"`)
}

func TestEventHelpers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core)).WithFields(map[string]interface{}{"component": "tracker"})

	l.LogStatus("snapshot_applied", "3", map[string]interface{}{"status": "shipped", "latency": "3ms"})
	l.LogError(errors.New("boom"), map[string]interface{}{"action": "fetch"})

	entries := logs.All()
	require.Len(t, entries, 2)

	status := entries[0].ContextMap()
	assert.Equal(t, "status_event", entries[0].Message)
	assert.Equal(t, "snapshot_applied", status["event"])
	assert.Equal(t, "3", status["order_id"])
	assert.Equal(t, "tracker", status["component"])
	assert.NotContains(t, status, "schema_error")

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}
