package config

import (
	"errors"
	"fmt"
	"os"

	"hubbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Booking    BookingConfig    `yaml:"booking"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BookingConfig struct {
	DefaultCapacity  int `yaml:"default_capacity"`
	CacheTTLSeconds  int `yaml:"cache_ttl_seconds"`
	StoreTimeoutMS   int `yaml:"store_timeout_ms"`
	CacheTimeoutMS   int `yaml:"cache_timeout_ms"`
	MaxProvisionDays int `yaml:"max_provision_days"`
	ProvisionRetries int `yaml:"provision_retries"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables referenced from the YAML are
	// expanded below either way.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.DefaultCapacity < 0 {
		return errors.New("booking.default_capacity must be non-negative")
	}
	return nil
}

// ValidateHubs checks the hub catalog loaded from hubs.yaml: IDs are unique
// and every default slot list holds unique HH:MM labels.
func ValidateHubs(hubs []models.Hub) error {
	hubIDs := make(map[int64]bool, len(hubs))
	for _, hub := range hubs {
		if hub.ID == 0 {
			return fmt.Errorf("hub %q has invalid ID 0", hub.Name)
		}
		if hubIDs[hub.ID] {
			return fmt.Errorf("duplicate hub ID found: %d", hub.ID)
		}
		hubIDs[hub.ID] = true

		labels := make(map[string]bool, len(hub.DefaultSlots))
		for _, slot := range hub.DefaultSlots {
			if !models.ValidSlotLabel(slot) {
				return fmt.Errorf("hub %q has invalid slot label %q", hub.Name, slot)
			}
			if labels[slot] {
				return fmt.Errorf("hub %q has duplicate slot label %q", hub.Name, slot)
			}
			labels[slot] = true
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Booking.DefaultCapacity == 0 {
		c.Booking.DefaultCapacity = models.DefaultSlotCapacity
	}
	if c.Booking.CacheTTLSeconds == 0 {
		c.Booking.CacheTTLSeconds = int(models.AvailabilityCacheTTL.Seconds())
	}
	if c.Booking.StoreTimeoutMS == 0 {
		c.Booking.StoreTimeoutMS = int(models.StoreOpTimeout.Milliseconds())
	}
	if c.Booking.CacheTimeoutMS == 0 {
		c.Booking.CacheTimeoutMS = int(models.CacheOpTimeout.Milliseconds())
	}
	if c.Booking.MaxProvisionDays == 0 {
		c.Booking.MaxProvisionDays = models.MaxProvisionDays
	}
	if c.Booking.ProvisionRetries == 0 {
		c.Booking.ProvisionRetries = 3
	}
}
