package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== Aska Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Provider
	fmt.Println("AI Provider options:")
	fmt.Println("  azure-openai - Azure OpenAI deployment (default)")
	fmt.Println("  openai       - OpenAI platform")
	fmt.Println("  anthropic    - Anthropic API")
	fmt.Print("Provider [azure-openai]: ")
	provider, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if provider == "" {
		provider = "azure-openai"
	}
	if err := validator.ValidateProvider(provider); err != nil {
		fmt.Printf("Warning: %v, using default (azure-openai)\n", err)
		provider = "azure-openai"
	}
	cfg.AI.Provider = provider

	// API Key
	for {
		fmt.Print("API Key: ")
		key, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if key == "" {
			fmt.Println("Error: API key is required")
			continue
		}

		if err := validator.ValidateAPIKey(key, provider); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		cfg.AI.APIKey = key
		break
	}

	if provider == "azure-openai" {
		for {
			fmt.Print("Azure endpoint (e.g. https://myresource.openai.azure.com): ")
			endpoint, err := w.readLine()
			if err != nil {
				return nil, err
			}
			if endpoint == "" {
				fmt.Println("Error: endpoint is required for azure-openai")
				continue
			}
			cfg.AI.Endpoint = endpoint
			break
		}

		fmt.Printf("API version [%s]: ", cfg.AI.APIVersion)
		version, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if version != "" {
			cfg.AI.APIVersion = version
		}
	}

	// Deployment / model name
	for {
		fmt.Print("Deployment (model name): ")
		deployment, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if deployment == "" {
			fmt.Println("Error: deployment is required")
			continue
		}
		cfg.AI.Deployment = deployment
		break
	}

	fmt.Println()

	// Persistence backend
	fmt.Println("Persistence backend options:")
	fmt.Println("  json   - one JSON snapshot file (default)")
	fmt.Println("  sqlite - SQLite database")
	fmt.Print("Backend [json]: ")
	backend, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if backend == "" {
		backend = "json"
	}
	if err := validator.ValidateBackend(backend); err != nil {
		fmt.Printf("Warning: %v, using default (json)\n", err)
		backend = "json"
	}
	cfg.Persistence.Backend = backend

	fmt.Println()

	// Log Level
	fmt.Println("Logging:")
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
