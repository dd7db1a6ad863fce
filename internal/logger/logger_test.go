package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "membank.log")

	l, err := New(Config{Level: "debug", File: logFile})
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	l.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.NotEmpty(t, entry["time"])
}

func TestNew_LevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "membank.log")

	l, err := New(Config{Level: "warn", File: logFile})
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	l.Debug().Msg("dropped")
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "membank.log")

	l, err := New(Config{Level: "loud", File: logFile})
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	l.Debug().Msg("dropped")
	l.Info().Msg("kept")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestWith_ChildLoggerCarriesContext(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "membank.log")

	l, err := New(Config{Level: "info", File: logFile})
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	child := l.With().Str("component", "cache").Logger()
	child.Info().Msg("hit")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "cache", entry["component"])
}

func TestClose_WithoutFile(t *testing.T) {
	l, err := New(Config{Level: "info", Console: true})
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.Empty(t, cfg.File)
}
