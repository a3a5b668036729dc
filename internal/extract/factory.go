package extract

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/llm"
)

// ClientFactory builds an LLM client for a provider. The default is
// llm.New; tests install stubs.
type ClientFactory func(provider string, cfg llm.Config) (llm.Client, error)

// Credentials carries environment-sourced provider credentials.
type Credentials struct {
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	OllamaBaseURL    string
}

// For returns the API key and base URL for a provider.
func (c Credentials) For(provider string) (apiKey, baseURL string) {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey, ""
	case "openrouter":
		return c.OpenRouterAPIKey, ""
	case "anthropic":
		return c.AnthropicAPIKey, ""
	case "ollama":
		return "", c.OllamaBaseURL
	}
	return "", ""
}

// DetectProvider picks the first provider with a configured credential.
// Ollama needs none, so it is the last resort.
func (c Credentials) DetectProvider() string {
	switch {
	case c.OpenRouterAPIKey != "":
		return "openrouter"
	case c.AnthropicAPIKey != "":
		return "anthropic"
	case c.OpenAIAPIKey != "":
		return "openai"
	default:
		return "ollama"
	}
}

// Defaults carries execution defaults applied to strategies that do not
// set their own.
type Defaults struct {
	StrategyTimeout  time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	MaxContentLength int
	MaxParallel      int
}

// FillZero replaces unset fields with the package constants.
func (d Defaults) FillZero() Defaults {
	if d.StrategyTimeout <= 0 {
		d.StrategyTimeout = constants.DefaultStrategyTimeout
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = constants.DefaultMaxRetries
	}
	if d.RetryDelay <= 0 {
		d.RetryDelay = constants.DefaultRetryDelay
	}
	if d.MaxContentLength <= 0 {
		d.MaxContentLength = constants.DefaultMaxContentLength
	}
	if d.MaxParallel <= 0 {
		d.MaxParallel = constants.DefaultMaxParallelSubstrategies
	}
	return d
}

// FactoryOptions configures a Factory.
type FactoryOptions struct {
	Clients     ClientFactory
	Credentials Credentials
	Defaults    Defaults
	Classifier  *Classifier
	Logger      *slog.Logger
}

// Factory instantiates strategies from registry entries and config maps.
type Factory struct {
	registry   *Registry
	clients    ClientFactory
	creds      Credentials
	defaults   Defaults
	classifier *Classifier
	logger     *slog.Logger
}

// NewFactory creates a factory over a registry.
func NewFactory(registry *Registry, opts FactoryOptions) *Factory {
	if opts.Clients == nil {
		opts.Clients = llm.New
	}
	if opts.Classifier == nil {
		opts.Classifier = NewClassifier()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Factory{
		registry:   registry,
		clients:    opts.Clients,
		creds:      opts.Credentials,
		defaults:   opts.Defaults.FillZero(),
		classifier: opts.Classifier,
		logger:     opts.Logger,
	}
}

// Registry returns the factory's registry.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// Classifier returns the factory's classifier.
func (f *Factory) Classifier() *Classifier {
	return f.classifier
}

// Create builds the named strategy with the given config.
func (f *Factory) Create(name string, cfg map[string]any) (Strategy, error) {
	entry, ok := f.registry.Get(name)
	if !ok {
		return nil, Newf(KindConfiguration, "unknown strategy: %s", name)
	}
	strat, err := entry.Constructor(cfg)
	if err != nil {
		return nil, Wrap(KindConfiguration, "construct strategy "+name, err)
	}
	return strat, nil
}

// CreateFromConfig builds a strategy from a {strategy, config} spec.
func (f *Factory) CreateFromConfig(spec map[string]any) (Strategy, error) {
	name, _ := spec["strategy"].(string)
	if name == "" {
		return nil, New(KindConfiguration, "spec needs a strategy name")
	}
	cfg, _ := spec["config"].(map[string]any)
	return f.Create(name, cfg)
}

// CreateComposite eagerly builds every spec'd sub-strategy and wraps them
// in a composite. Any construction failure aborts.
func (f *Factory) CreateComposite(specs []map[string]any, cfg CompositeConfig) (Strategy, error) {
	if len(specs) == 0 {
		return nil, New(KindConfiguration, "composite needs at least one sub-strategy spec")
	}

	subs := make([]Strategy, 0, len(specs))
	for _, spec := range specs {
		sub, err := f.CreateFromConfig(spec)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return f.Compose(subs, cfg)
}

// Compose wraps already-built strategies in a composite with the factory's
// defaults filled in.
func (f *Factory) Compose(subs []Strategy, cfg CompositeConfig) (Strategy, error) {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = f.defaults.MaxParallel
	}
	if cfg.Classifier == nil {
		cfg.Classifier = f.classifier
	}
	if cfg.Logger == nil {
		cfg.Logger = f.logger
	}
	return NewComposite(subs, cfg)
}

// LLMParams is the wire-level configuration accepted by LLM strategy
// constructors. Durations are seconds; unset fields inherit the strategy
// definition and then the service defaults.
type LLMParams struct {
	Provider         string         `json:"provider,omitempty"`
	Model            string         `json:"model,omitempty"`
	APIKey           string         `json:"api_key,omitempty"`
	BaseURL          string         `json:"base_url,omitempty"`
	Instruction      string         `json:"instruction,omitempty"`
	Schema           map[string]any `json:"schema,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        int            `json:"max_tokens,omitempty"`
	Timeout          float64        `json:"timeout,omitempty"`
	MaxRetries       *int           `json:"max_retries,omitempty"`
	RetryDelay       float64        `json:"retry_delay,omitempty"`
	MaxContentLength int            `json:"max_content_length,omitempty"`
}

// DecodeLLMParams reads a config map into LLMParams. Unknown keys are
// ignored so callers can carry extra annotations.
func DecodeLLMParams(cfg map[string]any) (LLMParams, error) {
	var params LLMParams
	if len(cfg) == 0 {
		return params, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return params, Wrap(KindConfiguration, "encode strategy config", err)
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, Wrap(KindConfiguration, "decode strategy config", err)
	}
	return params, nil
}

// merge overlays non-zero fields of other onto a copy of p.
func (p LLMParams) merge(other LLMParams) LLMParams {
	out := p
	if other.Provider != "" {
		out.Provider = other.Provider
	}
	if other.Model != "" {
		out.Model = other.Model
	}
	if other.APIKey != "" {
		out.APIKey = other.APIKey
	}
	if other.BaseURL != "" {
		out.BaseURL = other.BaseURL
	}
	if other.Instruction != "" {
		out.Instruction = other.Instruction
	}
	if other.Schema != nil {
		out.Schema = other.Schema
	}
	if other.Temperature != nil {
		out.Temperature = other.Temperature
	}
	if other.MaxTokens > 0 {
		out.MaxTokens = other.MaxTokens
	}
	if other.Timeout > 0 {
		out.Timeout = other.Timeout
	}
	if other.MaxRetries != nil {
		out.MaxRetries = other.MaxRetries
	}
	if other.RetryDelay > 0 {
		out.RetryDelay = other.RetryDelay
	}
	if other.MaxContentLength > 0 {
		out.MaxContentLength = other.MaxContentLength
	}
	return out
}

// BuildLLM constructs an LLM strategy from merged params, resolving the
// provider, model and credentials.
func (f *Factory) BuildLLM(name, category, version string, params LLMParams) (Strategy, error) {
	provider := params.Provider
	if provider == "" {
		provider = f.creds.DetectProvider()
	}

	model := params.Model
	if model == "" {
		model = llm.DefaultModel(provider)
	}
	model = NormalizeModel(provider, model)

	apiKey, baseURL := params.APIKey, params.BaseURL
	if apiKey == "" {
		envKey, envBase := f.creds.For(provider)
		apiKey = envKey
		if baseURL == "" {
			baseURL = envBase
		}
	}

	timeout := f.defaults.StrategyTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout * float64(time.Second))
	}
	retryDelay := f.defaults.RetryDelay
	if params.RetryDelay > 0 {
		retryDelay = time.Duration(params.RetryDelay * float64(time.Second))
	}
	maxRetries := f.defaults.MaxRetries
	if params.MaxRetries != nil {
		maxRetries = *params.MaxRetries
	}
	maxContent := f.defaults.MaxContentLength
	if params.MaxContentLength > 0 {
		maxContent = params.MaxContentLength
	}
	temperature := 0.1
	if params.Temperature != nil {
		temperature = *params.Temperature
	}

	client, err := f.clients(provider, llm.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, Wrap(KindConfiguration, "create "+provider+" client", err)
	}

	return NewLLMStrategy(name, category, version, LLMConfig{
		Provider:         provider,
		Model:            model,
		APIKey:           apiKey,
		BaseURL:          baseURL,
		Instruction:      params.Instruction,
		Schema:           params.Schema,
		Temperature:      temperature,
		MaxTokens:        params.MaxTokens,
		Timeout:          timeout,
		MaxRetries:       maxRetries,
		RetryDelay:       retryDelay,
		MaxContentLength: maxContent,
	}, client, f.logger)
}

var _ Builder = (*Factory)(nil)
