package config

import (
	"os"
	"path/filepath"
	"testing"

	"hubbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: hubbook
  environment: test
database:
  path: /tmp/test.db
booking:
  default_capacity: 10
api:
  port: 9999
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hubbook", cfg.App.Name)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Booking.DefaultCapacity)
	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, models.DefaultSlotCapacity, cfg.Booking.DefaultCapacity)
	assert.Equal(t, 300, cfg.Booking.CacheTTLSeconds)
	assert.Equal(t, 3000, cfg.Booking.StoreTimeoutMS)
	assert.Equal(t, 1000, cfg.Booking.CacheTimeoutMS)
	assert.Equal(t, models.MaxProvisionDays, cfg.Booking.MaxProvisionDays)
	assert.Equal(t, 3, cfg.Booking.ProvisionRetries)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/expanded.db")
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
}

func TestLoadRejectsMissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: hubbook
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateHubs(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := ValidateHubs([]models.Hub{
			{ID: 1, Name: "A", DefaultSlots: []string{"09:00", "09:30"}},
			{ID: 2, Name: "B", DefaultSlots: []string{"10:00"}},
		})
		assert.NoError(t, err)
	})

	t.Run("zero id", func(t *testing.T) {
		err := ValidateHubs([]models.Hub{{ID: 0, Name: "A"}})
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := ValidateHubs([]models.Hub{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}})
		assert.Error(t, err)
	})

	t.Run("bad slot label", func(t *testing.T) {
		err := ValidateHubs([]models.Hub{{ID: 1, Name: "A", DefaultSlots: []string{"9am"}}})
		assert.Error(t, err)
	})

	t.Run("duplicate slot label", func(t *testing.T) {
		err := ValidateHubs([]models.Hub{{ID: 1, Name: "A", DefaultSlots: []string{"09:00", "09:00"}}})
		assert.Error(t, err)
	})
}
