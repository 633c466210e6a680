package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"  info  ", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSetup_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path})
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, logger)
	logger.Debug("test_entry", slog.String("key", "value"))

	assert.FileExists(t, path)
}

func TestSetup_StderrOnly(t *testing.T) {
	logger, cleanup, err := Setup(DefaultConfig())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, logger)
}
