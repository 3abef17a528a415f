// Package config provides configuration management for the copilot bot.
// Settings are loaded from environment variables with the COPILOT_ prefix,
// with sensible defaults for everything that is not a secret. An optional
// YAML file can be layered underneath the environment: file values fill in
// fields the environment leaves unset, so the precedence is
// defaults < file < environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the bot process.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Admin    AdminConfig    `yaml:"admin"`
	Security SecurityConfig `yaml:"security"`
}

// DiscordConfig contains the platform connector settings.
type DiscordConfig struct {
	Token      string `yaml:"token"`       // Bot token (required)
	GatewayURL string `yaml:"gateway_url"` // Gateway websocket URL (default: wss://gateway.discord.gg)
	APIBaseURL string `yaml:"api_base_url"` // REST base URL (default: https://discord.com/api/v10)
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	Engine      string `yaml:"engine"`       // Storage engine: sqlite, postgres (default: sqlite)
	DataPath    string `yaml:"data_path"`    // Data directory for sqlite (default: ./data)
	PostgresDSN string `yaml:"postgres_dsn"` // Connection string when engine is postgres
}

// LLMConfig contains LLM backend configuration.
type LLMConfig struct {
	Provider string `yaml:"provider"` // LLM provider: groq, openai, ollama (default: groq)
	APIKey   string `yaml:"api_key"`  // API key for hosted providers
	Model    string `yaml:"model"`    // Model name (provider-specific default when empty)
	BaseURL  string `yaml:"base_url"` // Override API base URL (also how groq reuses the OpenAI client)
}

// AdminConfig contains the admin HTTP server settings.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"` // Serve the admin REST API (default: true)
	Host    string `yaml:"host"`    // Bind host (default: 127.0.0.1)
	Port    int    `yaml:"port"`    // Bind port (default: 6363)
}

// SecurityConfig contains admin API authentication settings.
type SecurityConfig struct {
	Mode     string `yaml:"mode"`      // development or production (default: development)
	APIToken string `yaml:"api_token"` // Bearer token required in production mode
}

// Load builds the configuration from environment variables. If path is
// non-empty, the YAML file at path is read first and environment variables
// override its values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Validate checks that the configuration is runnable.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("config: COPILOT_DISCORD_TOKEN is required")
	}
	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: COPILOT_POSTGRES_DSN is required when storage engine is postgres")
		}
	default:
		return fmt.Errorf("config: unsupported storage engine %q", c.Storage.Engine)
	}
	if c.Security.Mode == "production" && c.Security.APIToken == "" && c.Admin.Enabled {
		return fmt.Errorf("config: COPILOT_API_TOKEN is required in production mode")
	}
	return nil
}

// defaults returns a Config populated with default values only.
func defaults() *Config {
	return &Config{
		Discord: DiscordConfig{
			GatewayURL: "wss://gateway.discord.gg",
			APIBaseURL: "https://discord.com/api/v10",
		},
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data",
		},
		LLM: LLMConfig{
			Provider: "groq",
		},
		Admin: AdminConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    6363,
		},
		Security: SecurityConfig{
			Mode: "development",
		},
	}
}

// applyEnv overrides config fields from COPILOT_* environment variables.
func applyEnv(cfg *Config) {
	cfg.Discord.Token = getEnv("COPILOT_DISCORD_TOKEN", cfg.Discord.Token)
	cfg.Discord.GatewayURL = getEnv("COPILOT_GATEWAY_URL", cfg.Discord.GatewayURL)
	cfg.Discord.APIBaseURL = getEnv("COPILOT_API_BASE_URL", cfg.Discord.APIBaseURL)

	cfg.Storage.Engine = getEnv("COPILOT_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DataPath = getEnv("COPILOT_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.PostgresDSN = getEnv("COPILOT_POSTGRES_DSN", cfg.Storage.PostgresDSN)

	cfg.LLM.Provider = getEnv("COPILOT_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.APIKey = getEnv("COPILOT_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("COPILOT_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("COPILOT_LLM_BASE_URL", cfg.LLM.BaseURL)

	cfg.Admin.Enabled = getEnvBool("COPILOT_ADMIN_ENABLED", cfg.Admin.Enabled)
	cfg.Admin.Host = getEnv("COPILOT_ADMIN_HOST", cfg.Admin.Host)
	cfg.Admin.Port = getEnvInt("COPILOT_ADMIN_PORT", cfg.Admin.Port)

	cfg.Security.Mode = getEnv("COPILOT_SECURITY_MODE", cfg.Security.Mode)
	cfg.Security.APIToken = getEnv("COPILOT_API_TOKEN", cfg.Security.APIToken)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default wins.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
