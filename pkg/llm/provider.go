// Package llm wraps remote chat-completion providers behind a single
// capability: given a composed prompt, produce an answer. Provider
// failures are opaque remote errors to the rest of the service.
package llm

import (
	"context"
	"fmt"
)

// Provider is an interface for LLM API providers.
type Provider interface {
	// Call makes an LLM API call.
	Call(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Message is one conversation message sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Request contains the request parameters for an LLM call.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// Response contains the response from the LLM.
type Response struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Settings selects and configures a provider backend.
type Settings struct {
	Provider   string // "azure-openai", "openai", "anthropic"
	APIKey     string
	Endpoint   string // Azure resource endpoint, ignored for others
	APIVersion string // Azure API version, ignored for others
}

// NewProvider creates a provider from settings.
func NewProvider(settings Settings) (Provider, error) {
	switch settings.Provider {
	case "azure-openai":
		return NewAzureOpenAIProvider(settings.APIKey, settings.Endpoint, settings.APIVersion), nil
	case "openai":
		return NewOpenAIProvider(settings.APIKey), nil
	case "anthropic":
		return NewAnthropicProvider(settings.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", settings.Provider)
	}
}
