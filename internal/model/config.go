package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// BackendConfig holds the connection settings for the hosted backend.
type BackendConfig struct {
	// URL is the root URL of the hosted backend project.
	URL string `mapstructure:"url" yaml:"url"`

	// APIKey is the public (anon) API key sent with every request.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// ReadTimeoutSec bounds table reads (default 15).
	ReadTimeoutSec int `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`

	// WriteTimeoutSec bounds inserts/updates/deletes (default 30).
	WriteTimeoutSec int `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`

	// MaxRetries is how many times a failed table call is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// HealthConfig holds connection-monitor settings.
type HealthConfig struct {
	// CheckIntervalSec is how often the background health check runs.
	CheckIntervalSec int `mapstructure:"check_interval_sec" yaml:"check_interval_sec"`

	// CheckTimeoutSec bounds a single health probe (default 5).
	CheckTimeoutSec int `mapstructure:"check_timeout_sec" yaml:"check_timeout_sec"`

	// MaxRetries bounds reconnection attempts per ensure cycle.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// BaseDelayMs is the backoff base; attempt i waits BaseDelayMs * 2^i.
	BaseDelayMs int `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`

	// CachePath is the SQLite file holding the local mirror.
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`

	// KeyringService names the OS keyring entry group for session tokens.
	KeyringService string `mapstructure:"keyring_service" yaml:"keyring_service"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/alumnet/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "alumnet", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		Backend: BackendConfig{
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 30,
			MaxRetries:      2,
		},
		Health: HealthConfig{
			CheckIntervalSec: 30,
			CheckTimeoutSec:  5,
			MaxRetries:       3,
			BaseDelayMs:      1000,
		},
		CachePath:      filepath.Join(home, ".config", "alumnet", "cache.db"),
		KeyringService: "alumnet",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration. The
// backend URL and API key can always be overridden through the ALUMNET_URL
// and ALUMNET_API_KEY environment variables.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("backend.read_timeout_sec", 15)
	v.SetDefault("backend.write_timeout_sec", 30)
	v.SetDefault("backend.max_retries", 2)
	v.SetDefault("health.check_interval_sec", 30)
	v.SetDefault("health.check_timeout_sec", 5)
	v.SetDefault("health.max_retries", 3)
	v.SetDefault("health.base_delay_ms", 1000)
	v.SetDefault("keyring_service", "alumnet")

	cfg := defaultAppConfig()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultAppConfig().CachePath
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if url := os.Getenv("ALUMNET_URL"); url != "" {
		cfg.Backend.URL = url
	}
	if key := os.Getenv("ALUMNET_API_KEY"); key != "" {
		cfg.Backend.APIKey = key
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("health", cfg.Health)
	v.Set("cache_path", cfg.CachePath)
	v.Set("keyring_service", cfg.KeyringService)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
