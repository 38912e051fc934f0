// Package config loads and persists the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Catalog source configuration
	Catalog CatalogConfig `toml:"catalog"`

	// API server configuration
	API APIConfig `toml:"api"`

	// Backup configuration
	Backup BackupConfig `toml:"backup"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // Path to the collection database
	AutoMigrate bool   `toml:"auto_migrate"` // Apply pending migrations on startup
}

// CatalogConfig contains catalog source settings.
type CatalogConfig struct {
	SourcePath    string `toml:"source_path"`    // Path to the catalog source file
	Watch         bool   `toml:"watch"`          // Re-synchronize when the source changes
	WatchDebounce string `toml:"watch_debounce"` // Debounce window (e.g., "2s")
}

// APIConfig contains REST server settings.
type APIConfig struct {
	Addr      string  `toml:"addr"`       // Listen address (e.g., ":8080")
	RateLimit float64 `toml:"rate_limit"` // Requests per second per client (0 = unlimited)
	RateBurst int     `toml:"rate_burst"` // Burst size for the rate limiter
}

// BackupConfig contains backup settings.
type BackupConfig struct {
	Dir     string `toml:"dir"`     // Backup directory ("" = next to the database)
	Encrypt bool   `toml:"encrypt"` // Encrypt backups with a password prompt
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "",
			AutoMigrate: true,
		},
		Catalog: CatalogConfig{
			SourcePath:    "",
			Watch:         false,
			WatchDebounce: "2s",
		},
		API: APIConfig{
			Addr:      ":8080",
			RateLimit: 10,
			RateBurst: 20,
		},
		Backup: BackupConfig{
			Dir:     "",
			Encrypt: false,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// configPath returns the path to the configuration file, creating its
// directory when needed.
func configPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".tcgp-tracker")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from disk. A missing file yields the
// default configuration.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from the given file.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &config, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo saves the configuration to the given file.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Catalog.WatchDebounce); err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", c.Catalog.WatchDebounce, err)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.API.RateLimit)
	}
	if c.API.RateBurst < 0 {
		return fmt.Errorf("rate burst cannot be negative: %d", c.API.RateBurst)
	}
	return nil
}

// WatchDebounce returns the catalog watch debounce as a duration.
func (c *Config) WatchDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.WatchDebounce)
}
