// Package config loads the workspace settings from .harvestpath/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harvestpath/harvestpath/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
)

// Config stores workspace settings. Durations are written as Go duration strings.
type Config struct {
	Verifier VerifierConfig `yaml:"verifier"`
	Storage  StorageConfig  `yaml:"storage"`
	// Catalog is an optional path to a crop catalog YAML file. Empty uses the built-in catalog.
	Catalog string `yaml:"catalog,omitempty"`
}

type VerifierConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model,omitempty"`
	Timeout    string `yaml:"timeout"`
	Retries    int    `yaml:"retries"`
	RetryDelay string `yaml:"retry_delay"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Path overrides the database file for the sqlite backend.
	Path string `yaml:"path,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Verifier: VerifierConfig{
			Provider:   "mock",
			Timeout:    "30s",
			Retries:    2,
			RetryDelay: "1s",
		},
		Storage: StorageConfig{Backend: BackendFilesystem},
	}
}

// Path returns the config file location for a workspace root.
func Path(root string) string {
	return filepath.Join(storage.DataPath(root), storage.ConfigFile)
}

// Load reads the workspace config, falling back to defaults for missing
// files and unset fields.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config, creating the data directory if needed.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(storage.DataPath(root), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return os.WriteFile(Path(root), data, 0600)
}

// Validate checks durations, retries and the storage backend.
func (c *Config) Validate() error {
	if _, err := c.VerifierTimeout(); err != nil {
		return err
	}
	if _, err := c.VerifierRetryDelay(); err != nil {
		return err
	}
	if c.Verifier.Retries < 0 {
		return fmt.Errorf("verifier.retries must not be negative: %d", c.Verifier.Retries)
	}
	switch c.Storage.Backend {
	case BackendFilesystem, BackendSQLite:
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}
	return nil
}

// VerifierTimeout returns the parsed verifier timeout.
func (c *Config) VerifierTimeout() (time.Duration, error) {
	return parseDuration("verifier.timeout", c.Verifier.Timeout, 30*time.Second)
}

// VerifierRetryDelay returns the parsed delay between verifier attempts.
func (c *Config) VerifierRetryDelay() (time.Duration, error) {
	return parseDuration("verifier.retry_delay", c.Verifier.RetryDelay, time.Second)
}

// DatabasePath returns the sqlite file for the workspace.
func (c *Config) DatabasePath(root string) string {
	if c.Storage.Path == "" {
		return filepath.Join(storage.DataPath(root), storage.DatabaseFile)
	}
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(root, c.Storage.Path)
}

// CatalogPath resolves the catalog file relative to the workspace root.
func (c *Config) CatalogPath(root string) string {
	if c.Catalog == "" || filepath.IsAbs(c.Catalog) {
		return c.Catalog
	}
	return filepath.Join(root, c.Catalog)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive: %s", field, value)
	}
	return d, nil
}
