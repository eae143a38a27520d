package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateProvider validates a provider name
func (v *Validator) ValidateProvider(provider string) error {
	validProviders := []string{"azure-openai", "openai", "anthropic"}
	for _, valid := range validProviders {
		if provider == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid provider: %s (must be one of: %s)", provider, strings.Join(validProviders, ", "))
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateBackend validates the persistence backend
func (v *Validator) ValidateBackend(backend string) error {
	validBackends := []string{"json", "sqlite"}
	for _, valid := range validBackends {
		if backend == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid persistence backend: %s (must be one of: %s)", backend, strings.Join(validBackends, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateProvider(cfg.AI.Provider); err != nil {
		errors = append(errors, err)
	}

	if cfg.AI.APIKey == "" {
		errors = append(errors, fmt.Errorf("ai.api_key is required"))
	} else if err := v.ValidateAPIKey(cfg.AI.APIKey, cfg.AI.Provider); err != nil {
		errors = append(errors, err)
	}

	// Azure OpenAI needs the full deployment coordinates.
	if cfg.AI.Provider == "azure-openai" {
		if cfg.AI.Endpoint == "" {
			errors = append(errors, fmt.Errorf("ai.endpoint is required for azure-openai"))
		}
		if cfg.AI.APIVersion == "" {
			errors = append(errors, fmt.Errorf("ai.api_version is required for azure-openai"))
		}
		if cfg.AI.Deployment == "" {
			errors = append(errors, fmt.Errorf("ai.deployment is required for azure-openai"))
		}
	} else if cfg.AI.Deployment == "" {
		errors = append(errors, fmt.Errorf("ai.deployment (model name) is required"))
	}

	if cfg.AI.Temperature != 0 {
		if err := v.ValidateTemperature(cfg.AI.Temperature); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.AI.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.AI.MaxTokens); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.AI.Timeout < 0 {
		errors = append(errors, fmt.Errorf("ai.timeout must be >= 0"))
	}

	if err := v.ValidateBackend(cfg.Persistence.Backend); err != nil {
		errors = append(errors, err)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errors = append(errors, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Errorf("server.rate_limit_per_minute must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
