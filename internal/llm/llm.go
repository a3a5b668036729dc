// Package llm provides a unified client interface over the LLM providers
// used for extraction: OpenAI, OpenRouter, Anthropic and Ollama.
package llm

import (
	"context"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the LLM.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64

	// JSONSchema constrains the response to structured output when the
	// provider supports it. Providers that lack schema enforcement fall
	// back to instructing the model through the prompt alone.
	JSONSchema map[string]any
}

// Usage tracks token consumption for a completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response represents the result of a completion.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	// Model is the model that actually served the request, which may
	// differ from the configured one on auto-routing providers.
	Model    string
	Duration time.Duration
}

// Client is the boundary extraction strategies call LLMs through.
// Implementations must be safe for concurrent use; combinators fan
// extractions out across goroutines sharing one client.
type Client interface {
	// Complete sends a completion request and returns the response.
	// Failures are returned as *Error values carrying classification.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Provider returns the provider identifier (e.g. "openai", "ollama").
	Provider() string

	// Model returns the configured model name.
	Model() string
}

// Config holds common configuration for provider clients.
type Config struct {
	APIKey  string
	BaseURL string // custom endpoint; required only for Ollama overrides
	Model   string
	Timeout time.Duration

	// HTTPReferer and AppTitle are OpenRouter attribution headers.
	HTTPReferer string
	AppTitle    string
}

// DefaultTimeout is applied when Config.Timeout is zero.
const DefaultTimeout = 120 * time.Second
