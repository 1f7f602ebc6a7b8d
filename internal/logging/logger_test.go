package logging

import (
	"os"
	"path/filepath"
	"testing"

	"hubbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{}, config.AppConfig{Name: "hubbook"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Nil(t, closer)
}

func TestNewLevelFallback(t *testing.T) {
	logger, _, err := New(config.LoggingConfig{Level: "nonsense"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger, _, err = New(config.LoggingConfig{Level: "debug"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(config.LoggingConfig{
		Level:    "warn",
		Output:   "file",
		FilePath: path,
	}, config.AppConfig{Name: "hubbook", Environment: "test"})
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	logger.Warn().Msg("something happened")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "something happened")
	assert.Contains(t, string(data), `"app":"hubbook"`)
}

func TestNewFileOutputRequiresPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.Error(t, err)
}
