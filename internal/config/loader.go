package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".aska", "aska.json")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// Environment variables override file values, e.g. ASKA_AI_API_KEY.
	v.SetEnvPrefix("ASKA")
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(cfg, v)

	// Set data directory if not specified
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".aska")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "aska.log")
	}
	if cfg.Logging.AuditFile == "" {
		cfg.Logging.AuditFile = filepath.Join(cfg.DataDir, "audit.log")
	}
	if cfg.Persistence.SessionsPath == "" {
		switch cfg.Persistence.Backend {
		case "sqlite":
			cfg.Persistence.SessionsPath = filepath.Join(cfg.DataDir, "sessions.db")
		default:
			cfg.Persistence.SessionsPath = filepath.Join(cfg.DataDir, "sessions.json")
		}
	}
	if cfg.Persistence.UsersPath == "" {
		cfg.Persistence.UsersPath = filepath.Join(cfg.DataDir, "users.json")
	}

	return cfg, nil
}

// applyEnvOverrides maps flat environment variables onto nested fields.
// AutomaticEnv alone cannot reach nested keys that were never set in the
// config file.
func applyEnvOverrides(cfg *Config, v *viper.Viper) {
	if val := v.GetString("AI_API_KEY"); val != "" {
		cfg.AI.APIKey = val
	}
	if val := v.GetString("AI_ENDPOINT"); val != "" {
		cfg.AI.Endpoint = val
	}
	if val := v.GetString("AI_API_VERSION"); val != "" {
		cfg.AI.APIVersion = val
	}
	if val := v.GetString("AI_DEPLOYMENT"); val != "" {
		cfg.AI.Deployment = val
	}
	if val := v.GetString("AI_PROVIDER"); val != "" {
		cfg.AI.Provider = val
	}
	if val := v.GetInt("SERVER_PORT"); val != 0 {
		cfg.Server.Port = val
	}
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".aska", "aska.json")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", cfg.Server)
	v.Set("ai", cfg.AI)
	v.Set("persistence", cfg.Persistence)
	v.Set("personas_dir", cfg.PersonasDir)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aska", "aska.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
