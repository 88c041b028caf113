package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfiguresLoggers(t *testing.T) {
	Init()

	assert.NotNil(t, Structured())
	assert.NotNil(t, HumanReadable())
	assert.NotNil(t, ForService("capture"))
}

func TestForServiceNilBeforeInit(t *testing.T) {
	saved := structuredLogger
	structuredLogger = nil
	defer func() { structuredLogger = saved }()

	assert.Nil(t, ForService("capture"))
}

func TestLevelForDebug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, LevelForDebug(true))
	assert.Equal(t, slog.LevelInfo, LevelForDebug(false))
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wildcam.log")

	logger, closeFn, err := NewFileLogger(path, "test", slog.LevelInfo, DefaultRotation())
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer func() { require.NoError(t, closeFn()) }()

	logger.Info("file logger smoke test")
	assert.FileExists(t, path)
}

func TestNewFileLoggerRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, _, err := NewFileLogger("", "test", slog.LevelInfo, DefaultRotation())
	assert.Error(t, err)
}
