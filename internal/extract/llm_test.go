package extract

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/harvest-api/internal/llm"
)

// fakeClient scripts Complete responses per call number.
type fakeClient struct {
	mu       sync.Mutex
	calls    int
	requests []llm.Request
	complete func(call int, req llm.Request) (*llm.Response, error)
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.complete(call, req)
}

func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Model() string    { return "fake-model" }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) request(i int) llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

var testSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"headline": map[string]any{"type": "string"},
	},
	"required": []string{"headline"},
}

func newTestStrategy(t *testing.T, client llm.Client) *LLMStrategy {
	t.Helper()
	s, err := NewLLMStrategy("TestLLM", CategoryNews, "2.1.0", LLMConfig{
		Provider:    "fake",
		Model:       "fake-model",
		Instruction: "Extract the headline.",
		Schema:      testSchema,
		MaxTokens:   512,
		Temperature: 0.3,
		Timeout:     5 * time.Second,
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
	}, client, nil)
	if err != nil {
		t.Fatalf("NewLLMStrategy() error = %v", err)
	}
	return s
}

func TestLLMStrategyExtract(t *testing.T) {
	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return &llm.Response{
				Content:      `{"headline":"BTC up"}`,
				FinishReason: "stop",
				Model:        "fake-model-001",
				Usage:        llm.Usage{InputTokens: 7, OutputTokens: 3},
			}, nil
		},
	}
	s := newTestStrategy(t, client)

	rec, err := s.Extract(context.Background(), "https://example.com/a", "page content", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec["headline"] != "BTC up" {
		t.Errorf("headline = %v, want BTC up", rec["headline"])
	}

	meta, ok := rec[MetadataKey].(map[string]any)
	if !ok {
		t.Fatalf("missing %s on record: %v", MetadataKey, rec)
	}
	if meta["strategy"] != "TestLLM" {
		t.Errorf("strategy = %v, want TestLLM", meta["strategy"])
	}
	if meta["strategy_version"] != "2.1.0" {
		t.Errorf("strategy_version = %v, want 2.1.0", meta["strategy_version"])
	}
	if meta["provider"] != "fake" {
		t.Errorf("provider = %v, want fake", meta["provider"])
	}
	if meta["model"] != "fake-model-001" {
		t.Errorf("model = %v, want response model", meta["model"])
	}
	if _, ok := meta["extraction_timestamp"].(string); !ok {
		t.Errorf("extraction_timestamp missing: %v", meta)
	}
	usage, ok := meta["token_usage"].(map[string]any)
	if !ok {
		t.Fatalf("token_usage missing: %v", meta)
	}
	if usage["total_tokens"] != 10 {
		t.Errorf("total_tokens = %v, want 10", usage["total_tokens"])
	}

	// The request carries the layered prompts and the declared schema.
	req := client.request(0)
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "Extract the headline.") {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	if req.Messages[1].Role != llm.RoleUser || !strings.Contains(req.Messages[1].Content, "https://example.com/a") {
		t.Errorf("user message = %+v", req.Messages[1])
	}
	if req.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", req.MaxTokens)
	}
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
	if req.JSONSchema == nil {
		t.Error("JSONSchema not forwarded")
	}
}

func TestLLMStrategyExtractUnwrapsCodeFence(t *testing.T) {
	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "```json\n{\"headline\":\"fenced\"}\n```"}, nil
		},
	}
	s := newTestStrategy(t, client)

	rec, err := s.Extract(context.Background(), "https://example.com", "body", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec["headline"] != "fenced" {
		t.Errorf("headline = %v, want fenced", rec["headline"])
	}
}

func TestLLMStrategyExtractForwardsPreviousResults(t *testing.T) {
	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: `{"headline":"x"}`}, nil
		},
	}
	s := newTestStrategy(t, client)

	opts := Options{OptionPreviousResults: map[string]any{"author": "kim"}}
	if _, err := s.Extract(context.Background(), "https://example.com", "body", opts); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	user := client.request(0).Messages[1].Content
	if !strings.Contains(user, "earlier extraction steps") || !strings.Contains(user, `"author":"kim"`) {
		t.Errorf("previous results not in prompt: %q", user)
	}
}

func TestLLMStrategyExtractRetries(t *testing.T) {
	tests := []struct {
		name      string
		err       *llm.Error
		wantCalls int
		wantKind  Kind
	}{
		{
			name:      "connection errors retry until success",
			err:       &llm.Error{Provider: "fake", Category: llm.CategoryConnection, Err: context.DeadlineExceeded},
			wantCalls: 2,
		},
		{
			name:      "rate limits retry",
			err:       &llm.Error{Provider: "fake", Category: llm.CategoryRateLimit, Status: 429},
			wantCalls: 2,
		},
		{
			name:      "response errors do not retry",
			err:       &llm.Error{Provider: "fake", Category: llm.CategoryResponse, Status: 400},
			wantCalls: 1,
			wantKind:  KindAPIResponse,
		},
		{
			name:      "auth errors do not retry",
			err:       &llm.Error{Provider: "fake", Category: llm.CategoryAuth, Status: 401},
			wantCalls: 1,
			wantKind:  KindAPIResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{
				complete: func(call int, _ llm.Request) (*llm.Response, error) {
					if call == 1 {
						return nil, tt.err
					}
					return &llm.Response{Content: `{"headline":"recovered"}`}, nil
				},
			}
			s := newTestStrategy(t, client)

			rec, err := s.Extract(context.Background(), "https://example.com", "body", nil)

			if got := client.callCount(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantKind != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsKind(err, tt.wantKind) {
					t.Errorf("kind = %v, want %v", KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if rec["headline"] != "recovered" {
				t.Errorf("headline = %v, want recovered", rec["headline"])
			}
		})
	}
}

func TestLLMStrategyExtractExhaustsRetries(t *testing.T) {
	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return nil, &llm.Error{Provider: "fake", Category: llm.CategoryConnection, Err: context.DeadlineExceeded}
		},
	}
	s := newTestStrategy(t, client)

	_, err := s.Extract(context.Background(), "https://example.com", "body", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsKind(err, KindAPIConnection) {
		t.Errorf("kind = %v, want APIConnection", KindOf(err))
	}
	// MaxRetries 2 means three attempts in total.
	if got := client.callCount(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestLLMStrategyExtractBadJSON(t *testing.T) {
	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "the page is about bitcoin"}, nil
		},
	}
	s := newTestStrategy(t, client)

	_, err := s.Extract(context.Background(), "https://example.com", "body", nil)
	if !IsKind(err, KindContentParsing) {
		t.Errorf("kind = %v, want ContentParsing", KindOf(err))
	}
	if got := client.callCount(); got != 1 {
		t.Errorf("calls = %d, want 1 (parse failures do not retry)", got)
	}
}

func TestLLMStrategyExtractValidatesSchema(t *testing.T) {
	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: `{"author":"kim"}`}, nil
		},
	}
	s := newTestStrategy(t, client)

	_, err := s.Extract(context.Background(), "https://example.com", "body", nil)
	ee, ok := AsError(err)
	if !ok || ee.Kind != KindValidation {
		t.Fatalf("error = %v, want Validation", err)
	}
	if ee.Path != "headline" {
		t.Errorf("Path = %q, want headline", ee.Path)
	}
}

func TestLLMStrategyExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{
		complete: func(_ int, _ llm.Request) (*llm.Response, error) {
			return nil, &llm.Error{Provider: "fake", Category: llm.CategoryConnection, Err: context.Canceled}
		},
	}
	s := newTestStrategy(t, client)

	_, err := s.Extract(ctx, "https://example.com", "body", nil)
	if !IsKind(err, KindTimeout) {
		t.Errorf("kind = %v, want Timeout", KindOf(err))
	}
}

func TestNewLLMStrategyValidation(t *testing.T) {
	client := &fakeClient{}

	tests := []struct {
		name     string
		strategy string
		category string
		schema   map[string]any
		client   llm.Client
	}{
		{name: "empty name", strategy: "", category: CategoryNews, client: client},
		{name: "nil client", strategy: "s", category: CategoryNews, client: nil},
		{name: "unknown category", strategy: "s", category: "blogs", client: client},
		{name: "invalid schema", strategy: "s", category: CategoryNews, client: client,
			schema: map[string]any{"type": "object", "properties": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMStrategy(tt.strategy, tt.category, "", LLMConfig{Schema: tt.schema}, tt.client, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsKind(err, KindConfiguration) {
				t.Errorf("kind = %v, want Configuration", KindOf(err))
			}
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{"openrouter", "auto", "openrouter/auto"},
		{"openrouter", "openai/gpt-4o-mini", "openai/gpt-4o-mini"},
		{"openrouter", "", ""},
		{"openai", "gpt-4o-mini", "gpt-4o-mini"},
		{"ollama", "llama3.2", "llama3.2"},
	}

	for _, tt := range tests {
		if got := NormalizeModel(tt.provider, tt.model); got != tt.want {
			t.Errorf("NormalizeModel(%s, %s) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second

	if got := backoffDelay(base, 0); got != time.Second {
		t.Errorf("n=0: %v, want 1s", got)
	}
	if got := backoffDelay(base, 1); got != 2*time.Second {
		t.Errorf("n=1: %v, want 2s", got)
	}
	if got := backoffDelay(base, 2); got != 4*time.Second {
		t.Errorf("n=2: %v, want 4s", got)
	}
	if got := backoffDelay(base, 20); got != 30*time.Second {
		t.Errorf("n=20: %v, want capped at 30s", got)
	}
}
