package handlers

import (
	"context"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/service"
)

// TestURLHandler handles one-shot extraction tests.
type TestURLHandler struct {
	svc *service.TestURLService
}

// NewTestURLHandler creates a new test-url handler.
func NewTestURLHandler(svc *service.TestURLService) *TestURLHandler {
	return &TestURLHandler{svc: svc}
}

// LLMConfigInput overrides the LLM client used for a test extraction.
type LLMConfigInput struct {
	Provider string `json:"provider,omitempty" doc:"Provider tag (openai, anthropic, openrouter, ollama)"`
	Model    string `json:"model,omitempty" doc:"Model name"`
	APIKey   string `json:"api_key,omitempty" doc:"API key for the provider"`
	BaseURL  string `json:"base_url,omitempty" doc:"Override provider endpoint"`
}

// toOverlay renders the non-empty fields as constructor config overrides.
func (c *LLMConfigInput) toOverlay() map[string]any {
	if c == nil {
		return nil
	}
	overlay := make(map[string]any)
	if c.Provider != "" {
		overlay["provider"] = c.Provider
	}
	if c.Model != "" {
		overlay["model"] = c.Model
	}
	if c.APIKey != "" {
		overlay["api_key"] = c.APIKey
	}
	if c.BaseURL != "" {
		overlay["base_url"] = c.BaseURL
	}
	if len(overlay) == 0 {
		return nil
	}
	return overlay
}

// TestURLInput represents a test extraction request.
type TestURLInput struct {
	Body struct {
		URL         string          `json:"url" minLength:"1" doc:"URL to extract from"`
		Content     string          `json:"content,omitempty" doc:"Page content to use instead of fetching the URL"`
		ExtractorID string          `json:"extractor_id,omitempty" doc:"Run this extractor; when empty the URL is routed through the mapping catalog"`
		LLMConfig   *LLMConfigInput `json:"llm_config,omitempty" doc:"Ad-hoc LLM overrides"`
		Instruction string          `json:"instruction,omitempty" doc:"Override the extraction instruction"`
		Schema      map[string]any  `json:"schema,omitempty" doc:"Override the output JSON Schema"`
	}
}

// TestURLOutput represents a test extraction response. Failures inside the
// extraction itself report success=false here rather than an error status.
type TestURLOutput struct {
	Body struct {
		URL              string         `json:"url"`
		ExtractorUsed    string         `json:"extractor_used,omitempty" doc:"Strategy that produced the result"`
		ExtractionResult extract.Record `json:"extraction_result,omitempty" doc:"Extracted record"`
		Metadata         map[string]any `json:"metadata,omitempty" doc:"Execution metadata"`
		Success          bool           `json:"success"`
		ErrorMessage     string         `json:"error_message,omitempty"`
	}
}

// TestURL runs a single extraction against a URL or supplied content.
func (h *TestURLHandler) TestURL(ctx context.Context, input *TestURLInput) (*TestURLOutput, error) {
	result, err := h.svc.Test(ctx, service.TestURLInput{
		URL:         input.Body.URL,
		Content:     input.Body.Content,
		ExtractorID: input.Body.ExtractorID,
		LLMConfig:   input.Body.LLMConfig.toOverlay(),
		Instruction: input.Body.Instruction,
		Schema:      input.Body.Schema,
	})
	if err != nil {
		return nil, apiError(err)
	}

	output := &TestURLOutput{}
	output.Body.URL = result.URL
	output.Body.ExtractorUsed = result.ExtractorUsed
	output.Body.ExtractionResult = result.Result
	output.Body.Metadata = result.Metadata
	output.Body.Success = result.Success
	output.Body.ErrorMessage = result.ErrorMessage
	return output, nil
}
