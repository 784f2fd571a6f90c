package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitConsoleAndJSON(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		require.NoError(t, Init(Config{Level: "debug", Format: format}), "format %s", format)
		assert.NotNil(t, L())
		assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(Config{Level: "chatty", Format: "json"}))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", OutputPath: path}))

	Info("hello")
	require.NoError(t, Sync())
	assert.FileExists(t, path)
}

func TestLoggingBeforeInitDoesNotPanic(t *testing.T) {
	globalLogger = nil
	assert.NotPanics(t, func() {
		Info("early message")
		Warn("early warning")
	})
}
