// Package config holds the application configuration, loaded through viper
// from file, environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Policy      PolicyConfig      `mapstructure:"policy"`
	Distill     DistillConfig     `mapstructure:"distill"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Server      ServerConfig      `mapstructure:"server"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// StorageConfig holds store placement.
type StorageConfig struct {
	// BaseDir is the root for all databases. Defaults to ~/.tenet.
	BaseDir string `mapstructure:"base_dir"`
	// GlobalDB overrides the global store location.
	GlobalDB string `mapstructure:"global_db"`
	// CursorDir overrides the ingestion cursor store location.
	CursorDir string `mapstructure:"cursor_dir"`
}

// PolicyConfig points at an optional predicate policy override file.
type PolicyConfig struct {
	Path string `mapstructure:"path"`
}

// DistillConfig selects and configures the distiller.
type DistillConfig struct {
	// Provider is heuristic or model.
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// Subject is the default subject for heuristic claims with no explicit
	// subject. Empty means the project directory name.
	Subject string `mapstructure:"subject"`
}

// EmbeddingConfig configures the in-process term-vector embedder.
type EmbeddingConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Dimensions int  `mapstructure:"dimensions"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// MaintenanceConfig holds sweeper retention and budget settings.
type MaintenanceConfig struct {
	ProposedTTLHours int `mapstructure:"proposed_ttl_hours"`
	ContentTTLHours  int `mapstructure:"content_ttl_hours"`
	BudgetMS         int `mapstructure:"budget_ms"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

// GlobalDBPath returns the resolved global store path.
func (c *Config) GlobalDBPath() string {
	if c.Storage.GlobalDB != "" {
		return c.Storage.GlobalDB
	}
	return filepath.Join(c.Storage.BaseDir, "global.db")
}

// CursorDirPath returns the resolved cursor store directory.
func (c *Config) CursorDirPath() string {
	if c.Storage.CursorDir != "" {
		return c.Storage.CursorDir
	}
	return filepath.Join(c.Storage.BaseDir, "cursors")
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("storage.base_dir", filepath.Join(home, ".tenet"))
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".tenet", "telemetry"))
	}

	viper.SetDefault("distill.provider", "heuristic")
	viper.SetDefault("distill.model", "gpt-4o-mini")
	viper.SetDefault("distill.temperature", 0.0)
	viper.SetDefault("distill.max_tokens", 2048)

	viper.SetDefault("embedding.enabled", true)
	viper.SetDefault("embedding.dimensions", 256)

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("maintenance.proposed_ttl_hours", 14*24)
	viper.SetDefault("maintenance.content_ttl_hours", 30*24)
	viper.SetDefault("maintenance.budget_ms", 2000)
}

func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Distill.APIKey == "" {
		config.Distill.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.Distill.BaseURL = baseURL
	}
	if dir := os.Getenv("TENET_BASE_DIR"); dir != "" {
		config.Storage.BaseDir = dir
	}
	if db := os.Getenv("TENET_GLOBAL_DB"); db != "" {
		config.Storage.GlobalDB = db
	}
	if path := os.Getenv("TENET_POLICY_PATH"); path != "" {
		config.Policy.Path = path
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
