// Package config loads application configuration from files and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pgx-risk-server/internal/domain"
)

// Manager loads and holds the application configuration via Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pgx-risk-server/")

	viper.SetEnvPrefix("PGX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional, defaults and env vars cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.max_upload_bytes", 32<<20)
	viper.SetDefault("server.environment", "development")

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.path", "data/reports.db")
	viper.SetDefault("store.dsn", "")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.lru_size", 256)
	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.ttl", "1h")

	viper.SetDefault("explain.enabled", false)
	viper.SetDefault("explain.api_key", "")
	viper.SetDefault("explain.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("explain.model", "openai/gpt-oss-120b")
	viper.SetDefault("explain.timeout", "30s")
	viper.SetDefault("explain.rate_per_sec", 2)
	viper.SetDefault("explain.rate_burst", 2)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch strings.ToLower(config.Store.Driver) {
	case "sqlite", "":
		if config.Store.Path == "" {
			return fmt.Errorf("store path is required for sqlite")
		}
	case "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", config.Store.Driver)
	}

	if config.Explain.Enabled && config.Explain.APIKey == "" {
		return fmt.Errorf("explain.api_key is required when explanations are enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Server.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Server.Environment)
	return env == "development" || env == "dev" || env == ""
}
