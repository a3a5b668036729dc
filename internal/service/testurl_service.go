package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/fetcher"
)

// TestURLService runs one-shot extractions for interactive testing: either
// against a named extractor or through the dispatcher's mapping resolution.
type TestURLService struct {
	dispatch *DispatchService
	factory  *extract.Factory
	fetcher  *fetcher.Fetcher
	logger   *slog.Logger
}

// NewTestURLService creates a test-url service.
func NewTestURLService(dispatch *DispatchService, factory *extract.Factory, f *fetcher.Fetcher, logger *slog.Logger) *TestURLService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TestURLService{
		dispatch: dispatch,
		factory:  factory,
		fetcher:  f,
		logger:   logger.With("component", "test_url"),
	}
}

// TestURLInput is one test request. Content is fetched from the URL when
// empty. ExtractorID picks a strategy directly; without it the request
// routes through the dispatcher's URL mappings.
type TestURLInput struct {
	URL         string
	Content     string
	ExtractorID string
	LLMConfig   map[string]any
	Instruction string
	Schema      map[string]any
}

// TestURLResult reports one test extraction. Failures that happen while
// running the strategy (or fetching the page) come back with Success false
// and an ErrorMessage instead of an API error.
type TestURLResult struct {
	URL           string
	ExtractorUsed string
	Result        extract.Record
	Metadata      map[string]any
	Success       bool
	ErrorMessage  string
}

// Test runs one extraction test.
func (s *TestURLService) Test(ctx context.Context, input TestURLInput) (*TestURLResult, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, extract.New(extract.KindValidation, "url must not be empty")
	}

	content := input.Content
	if content == "" {
		fetched, err := s.fetcher.Fetch(ctx, input.URL)
		if err != nil {
			s.logger.Info("test fetch failed", "url", input.URL, "error", err)
			return &TestURLResult{
				URL:          input.URL,
				Success:      false,
				ErrorMessage: fmt.Sprintf("fetch failed: %v", err),
			}, nil
		}
		content = fetched.Content()
	}

	if input.ExtractorID != "" {
		return s.testExtractor(ctx, input, content)
	}
	return s.testRouted(ctx, input, content)
}

// testExtractor builds the named strategy with the request's ad-hoc
// overrides and runs it directly, skipping mapping resolution.
func (s *TestURLService) testExtractor(ctx context.Context, input TestURLInput, content string) (*TestURLResult, error) {
	if _, ok := s.factory.Registry().Get(input.ExtractorID); !ok {
		return nil, extract.Newf(extract.KindValidation, "unknown extractor %q", input.ExtractorID)
	}

	strat, err := s.factory.Create(input.ExtractorID, overlayConfig(input))
	if err != nil {
		return nil, err
	}

	record, err := strat.Extract(ctx, input.URL, content, nil)
	return s.finish(input.URL, strat.Name(), record, err)
}

// testRouted sends the request through the dispatcher so mappings, rate
// budgets and composites behave exactly as in production.
func (s *TestURLService) testRouted(ctx context.Context, input TestURLInput, content string) (*TestURLResult, error) {
	res, err := s.dispatch.Dispatch(ctx, DispatchInput{
		URL:       input.URL,
		Content:   content,
		Overrides: overlayConfig(input),
	})
	if err != nil {
		return s.finish(input.URL, "", nil, err)
	}
	return s.finish(input.URL, res.ExtractorUsed, res.Record, nil)
}

func (s *TestURLService) finish(url, extractor string, record extract.Record, err error) (*TestURLResult, error) {
	if err != nil {
		if !executionFailure(err) {
			return nil, err
		}
		s.logger.Info("test extraction failed", "url", url, "extractor", extractor, "error", err)
		return &TestURLResult{
			URL:           url,
			ExtractorUsed: extractor,
			Success:       false,
			ErrorMessage:  err.Error(),
		}, nil
	}

	meta, _ := record[extract.MetadataKey].(map[string]any)
	return &TestURLResult{
		URL:           url,
		ExtractorUsed: extractor,
		Result:        record,
		Metadata:      meta,
		Success:       true,
	}, nil
}

// overlayConfig folds llm_config, instruction and schema into one
// constructor config map.
func overlayConfig(input TestURLInput) map[string]any {
	cfg := make(map[string]any, len(input.LLMConfig)+2)
	for k, v := range input.LLMConfig {
		cfg[k] = v
	}
	if input.Instruction != "" {
		cfg["instruction"] = input.Instruction
	}
	if input.Schema != nil {
		cfg["schema"] = input.Schema
	}
	if len(cfg) == 0 {
		return nil
	}
	return cfg
}

// executionFailure reports whether err happened while running a strategy
// rather than while resolving or validating the request. Execution failures
// come back as Success=false results; everything else surfaces as an API
// error with its own status.
func executionFailure(err error) bool {
	switch extract.KindOf(err) {
	case extract.KindAPIConnection, extract.KindAPIResponse, extract.KindContentParsing, extract.KindTimeout:
		return true
	}
	return false
}
