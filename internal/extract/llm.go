package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/llm"
)

// LLMConfig configures an LLM strategy instance.
type LLMConfig struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	APIKey      string         `json:"api_key,omitempty"`
	BaseURL     string         `json:"base_url,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`

	// Timeout bounds a single extraction including retries. Zero means
	// the default strategy timeout.
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxRetries and RetryDelay shape the backoff schedule. MaxRetries
	// counts retries after the first attempt.
	MaxRetries int           `json:"max_retries,omitempty"`
	RetryDelay time.Duration `json:"retry_delay,omitempty"`

	// MaxContentLength bounds the content slice passed to the model.
	MaxContentLength int `json:"max_content_length,omitempty"`
}

// LLMStrategy extracts structured records by prompting an LLM with the page
// content and validating the response against the declared schema.
type LLMStrategy struct {
	name     string
	category string
	version  string
	cfg      LLMConfig
	client   llm.Client
	logger   *slog.Logger
}

// NewLLMStrategy creates an LLM strategy around an existing client. The
// client is shared across invocations and must be concurrency-safe.
func NewLLMStrategy(name, category, version string, cfg LLMConfig, client llm.Client, logger *slog.Logger) (*LLMStrategy, error) {
	if name == "" {
		return nil, New(KindConfiguration, "strategy name must not be empty")
	}
	if client == nil {
		return nil, Newf(KindConfiguration, "strategy %s: llm client must not be nil", name)
	}
	if category == "" {
		category = CategoryGeneral
	}
	if !ValidCategory(category) {
		return nil, Newf(KindConfiguration, "strategy %s: unknown category %q", name, category)
	}
	if version == "" {
		version = "1.0.0"
	}
	if cfg.Schema != nil {
		if err := ValidateSchema(cfg.Schema); err != nil {
			// A bad declared schema is a setup failure, not a runtime
			// validation failure.
			return nil, &Error{Kind: KindConfiguration, Detail: "strategy " + name + ": invalid schema", Err: err}
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultStrategyTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = constants.DefaultRetryDelay
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = constants.DefaultMaxContentLength
	}
	cfg.Model = NormalizeModel(cfg.Provider, cfg.Model)

	if logger == nil {
		logger = slog.Default()
	}

	return &LLMStrategy{
		name:     name,
		category: category,
		version:  version,
		cfg:      cfg,
		client:   client,
		logger:   logger,
	}, nil
}

// NormalizeModel namespaces a model id for OpenRouter: bare names gain the
// openrouter/ prefix, already-namespaced ids pass through.
func NormalizeModel(provider, model string) string {
	if provider != "openrouter" || model == "" {
		return model
	}
	if strings.Contains(model, "/") {
		return model
	}
	return "openrouter/" + model
}

// Name returns the registry identity of the strategy.
func (s *LLMStrategy) Name() string {
	return s.name
}

// Category returns the content category the strategy targets.
func (s *LLMStrategy) Category() string {
	return s.category
}

// Version returns the strategy version recorded in result metadata.
func (s *LLMStrategy) Version() string {
	return s.version
}

// Schema returns the declared output schema, or nil.
func (s *LLMStrategy) Schema() map[string]any {
	return s.cfg.Schema
}

// Instruction returns the prompt fragment appended to the system prompt.
func (s *LLMStrategy) Instruction() string {
	return s.cfg.Instruction
}

// Extract prompts the model with the content and returns the validated
// record. Connection failures, timeouts and 429s are retried with
// exponential backoff; response and validation failures are not.
func (s *LLMStrategy) Extract(ctx context.Context, url, content string, opts Options) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var previous Record
	if prev, ok := opts[OptionPreviousResults].(map[string]any); ok {
		previous = prev
	}

	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: BuildSystemPrompt(s.cfg.Instruction)},
			{Role: llm.RoleUser, Content: BuildUserPrompt(url, content, s.cfg.MaxContentLength, previous)},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		JSONSchema:  s.cfg.Schema,
	}

	var (
		lastErr    error
		totalUsage llm.Usage
	)

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(s.cfg.RetryDelay, attempt-1)
			s.logger.Debug("retrying extraction",
				"strategy", s.name,
				"attempt", attempt+1,
				"delay", delay,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, s.timeoutError(ctx, lastErr)
			}
		}

		resp, err := s.client.Complete(ctx, req)
		if resp != nil {
			totalUsage.InputTokens += resp.Usage.InputTokens
			totalUsage.OutputTokens += resp.Usage.OutputTokens
		}
		if err != nil {
			lastErr = s.mapClientError(ctx, err)
			if Retryable(lastErr) && attempt < s.cfg.MaxRetries {
				continue
			}
			return nil, lastErr
		}

		rec, err := s.parseResponse(resp)
		if err != nil {
			return nil, err
		}

		if err := ValidateRecord(s.cfg.Schema, rec); err != nil {
			return nil, err
		}

		s.attachMetadata(rec, resp, totalUsage)
		return rec, nil
	}

	return nil, lastErr
}

// parseResponse decodes the model output, unwrapping a code fence when
// present.
func (s *LLMStrategy) parseResponse(resp *llm.Response) (Record, error) {
	body := StripCodeFence(resp.Content)

	var rec Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, &Error{
			Kind:   KindContentParsing,
			Detail: "model response is not valid JSON: " + snippet(resp.Content),
			Err:    err,
		}
	}
	return rec, nil
}

// attachMetadata records extraction provenance on the result.
func (s *LLMStrategy) attachMetadata(rec Record, resp *llm.Response, usage llm.Usage) {
	meta := map[string]any{
		"strategy":             s.name,
		"strategy_version":     s.version,
		"extraction_timestamp": Timestamp(time.Now()),
		"provider":             s.client.Provider(),
		"model":                s.client.Model(),
	}
	if resp.Model != "" {
		meta["model"] = resp.Model
	}
	if usage.Total() > 0 {
		meta["token_usage"] = map[string]any{
			"input_tokens":  usage.InputTokens,
			"output_tokens": usage.OutputTokens,
			"total_tokens":  usage.Total(),
		}
	}
	rec[MetadataKey] = meta
}

// mapClientError converts a classified llm error into the extraction
// taxonomy.
func (s *LLMStrategy) mapClientError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return s.timeoutError(ctx, err)
	}

	var ce *llm.Error
	if !errors.As(err, &ce) {
		return Wrap(KindAPIConnection, "llm call failed", err)
	}

	switch ce.Category {
	case llm.CategoryTimeout:
		return &Error{Kind: KindTimeout, Detail: "llm call timed out", Err: ce}
	case llm.CategoryConnection:
		return &Error{Kind: KindAPIConnection, Detail: "llm provider unreachable", Err: ce, Status: ce.Status}
	case llm.CategoryRateLimit:
		status := ce.Status
		if status == 0 {
			status = 429
		}
		return &Error{Kind: KindAPIResponse, Detail: "llm provider rate limited", Err: ce, Status: status}
	default:
		return &Error{Kind: KindAPIResponse, Detail: "llm provider rejected request", Err: ce, Status: ce.Status}
	}
}

// timeoutError distinguishes deadline expiry from caller cancellation.
func (s *LLMStrategy) timeoutError(ctx context.Context, lastErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Detail: "extraction deadline exceeded", Err: lastErr}
	}
	return &Error{Kind: KindTimeout, Detail: "extraction cancelled", Err: context.Cause(ctx)}
}

// backoffDelay computes the exponential backoff for retry n (zero-based),
// capped at the maximum.
func backoffDelay(base time.Duration, n int) time.Duration {
	delay := float64(base)
	for i := 0; i < n; i++ {
		delay *= constants.BackoffMultiplier
	}
	if d := time.Duration(delay); d < constants.MaxBackoff {
		return d
	}
	return constants.MaxBackoff
}

// snippet bounds a model response for inclusion in error details.
func snippet(s string) string {
	const max = 200
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ Strategy = (*LLMStrategy)(nil)
