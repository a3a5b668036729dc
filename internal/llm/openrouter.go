package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient implements Client against the OpenRouter API, which
// speaks the OpenAI chat completion protocol with its own model catalog.
type OpenRouterClient struct {
	client openai.Client
	model  string
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg Config) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Provider: "openrouter", Category: CategoryAuth,
			Err: errMissingAPIKey("OPENROUTER_API_KEY")}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	// OpenRouter attribution headers.
	if cfg.HTTPReferer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.HTTPReferer))
	}
	if cfg.AppTitle != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.AppTitle))
	}

	model := cfg.Model
	if model == "" {
		model = "openrouter/auto"
	}

	return &OpenRouterClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete sends a completion request to OpenRouter.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   openai.Int(int64(maxTokensOrDefault(req.MaxTokens))),
		Temperature: openai.Float(req.Temperature),
	}

	if req.JSONSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "extraction_result",
					Schema: req.JSONSchema,
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, Classify(err, "openrouter", c.model)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: "openrouter", Model: c.model,
			Category: CategoryResponse, Err: errNoChoices}
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		Model:    resp.Model,
		Duration: time.Since(start),
	}, nil
}

// Provider returns the provider identifier.
func (c *OpenRouterClient) Provider() string {
	return "openrouter"
}

// Model returns the configured model name.
func (c *OpenRouterClient) Model() string {
	return c.model
}

var _ Client = (*OpenRouterClient)(nil)
