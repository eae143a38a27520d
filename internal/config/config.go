package config

import (
	"encoding/json"
)

// Config represents the main Aska configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// AI provider configuration
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Persistence configuration
	Persistence PersistenceConfig `json:"persistence" mapstructure:"persistence"`

	// Personas directory (optional custom persona definitions)
	PersonasDir string `json:"personas_dir" mapstructure:"personas_dir"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // azure-openai, openai, anthropic
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Endpoint    string  `json:"endpoint" mapstructure:"endpoint"`
	APIVersion  string  `json:"api_version" mapstructure:"api_version"`
	Deployment  string  `json:"deployment" mapstructure:"deployment"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     int     `json:"timeout" mapstructure:"timeout"` // seconds
}

// PersistenceConfig holds session persistence configuration
type PersistenceConfig struct {
	Backend      string `json:"backend" mapstructure:"backend"` // json, sqlite
	SessionsPath string `json:"sessions_path" mapstructure:"sessions_path"`
	UsersPath    string `json:"users_path" mapstructure:"users_path"`
	AutoSave     string `json:"auto_save" mapstructure:"auto_save"` // cron spec; empty disables
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               3000,
			RateLimitPerMinute: 100,
		},
		AI: AIConfig{
			Provider:    "azure-openai",
			APIVersion:  "2024-02-01",
			Temperature: 0.7,
			MaxTokens:   500,
			Timeout:     30,
		},
		Persistence: PersistenceConfig{
			Backend:  "json",
			AutoSave: "@every 5m",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
