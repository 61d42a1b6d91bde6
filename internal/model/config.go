package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EngineConfig holds tunables for the workflow engine.
type EngineConfig struct {
	// DependencyDueOffsetDays is the fallback due-date offset for
	// dependency tasks when the parent task has no due date.
	DependencyDueOffsetDays int `mapstructure:"dependency_due_offset_days" yaml:"dependency_due_offset_days"`

	// NotifyMaxRetries bounds redelivery attempts for a failed
	// notification dispatch before the notification is dropped.
	NotifyMaxRetries int `mapstructure:"notify_max_retries" yaml:"notify_max_retries"`

	// NotifyRetryBackoffMS is the pause between redelivery attempts.
	NotifyRetryBackoffMS int `mapstructure:"notify_retry_backoff_ms" yaml:"notify_retry_backoff_ms"`

	// WatchBufferSize is the per-subscriber event channel capacity.
	WatchBufferSize int `mapstructure:"watch_buffer_size" yaml:"watch_buffer_size"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database file location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AppConfig is the top-level configuration for embedders of the engine.
type AppConfig struct {
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskflow", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Engine: EngineConfig{
			DependencyDueOffsetDays: 7,
			NotifyMaxRetries:        2,
			NotifyRetryBackoffMS:    250,
			WatchBufferSize:         16,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(".", "taskflow.db"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("engine.dependency_due_offset_days", 7)
	v.SetDefault("engine.notify_max_retries", 2)
	v.SetDefault("engine.notify_retry_backoff_ms", 250)
	v.SetDefault("engine.watch_buffer_size", 16)
	v.SetDefault("storage.db_path", filepath.Join(".", "taskflow.db"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
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

	v.Set("engine", cfg.Engine)
	v.Set("storage", cfg.Storage)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
