package llm

import (
	"errors"
	"fmt"
)

// Factory creates clients from config.
type Factory func(cfg Config) (Client, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"openrouter": "openrouter/auto",
	"anthropic":  "claude-sonnet-4-20250514",
	"ollama":     "llama3.2",
}

var registry = map[string]Factory{}

func init() {
	Register("openai", func(cfg Config) (Client, error) {
		return NewOpenAIClient(cfg)
	})
	Register("openrouter", func(cfg Config) (Client, error) {
		return NewOpenRouterClient(cfg)
	})
	Register("anthropic", func(cfg Config) (Client, error) {
		return NewAnthropicClient(cfg)
	})
	Register("ollama", func(cfg Config) (Client, error) {
		return NewOllamaClient(cfg)
	})
}

// New creates a client for the named provider.
func New(provider string, cfg Config) (Client, error) {
	factory, ok := registry[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: openai, openrouter, anthropic, ollama)", provider)
	}
	return factory(cfg)
}

// Register adds a provider factory. Later registrations replace earlier
// ones, which tests use to install stubs.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// IsRegistered reports whether a provider is registered.
func IsRegistered(name string) bool {
	_, ok := registry[name]
	return ok
}

// DefaultModel returns the default model for a provider, or "".
func DefaultModel(provider string) string {
	return DefaultModels[provider]
}

var errNoChoices = errors.New("no choices in response")

// errMissingAPIKey builds the configuration error for an absent credential.
func errMissingAPIKey(envVar string) error {
	return fmt.Errorf("API key required: set %s", envVar)
}
