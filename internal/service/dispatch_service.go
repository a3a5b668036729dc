package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/metrics"
	"github.com/jmylchreest/harvest-api/internal/models"
	"github.com/jmylchreest/harvest-api/internal/ratelimit"
	"github.com/jmylchreest/harvest-api/internal/repository"
)

// DispatchService routes extraction requests to the strategies their URL is
// mapped to, enforcing per-mapping rate budgets on the way.
type DispatchService struct {
	repos   *repository.Repositories
	factory *extract.Factory
	ledger  *ratelimit.Ledger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(
	repos *repository.Repositories,
	factory *extract.Factory,
	ledger *ratelimit.Ledger,
	m *metrics.Metrics,
	logger *slog.Logger,
) *DispatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		repos:   repos,
		factory: factory,
		ledger:  ledger,
		metrics: m,
		logger:  logger.With("component", "dispatch"),
	}
}

// DispatchInput carries one extraction request.
type DispatchInput struct {
	URL     string
	Content string

	// Overrides layer extra constructor config onto every resolved
	// extractor, e.g. an ad-hoc model or instruction.
	Overrides map[string]any
}

// DispatchResult is a routed extraction with its resolution context.
type DispatchResult struct {
	Record        extract.Record
	RequestID     string
	Mapping       *models.URLMapping
	Configuration *models.URLConfiguration
	ExtractorUsed string
	Extractors    []string
	Elapsed       time.Duration
}

// Dispatch matches url against the active mappings, spends one request from
// the mapping's rate budget, and runs the mapped extractors over content.
// Several extractors run as a composite; the record comes back annotated
// with the dispatch context under _metadata.
func (s *DispatchService) Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	start := time.Now()
	requestID := ulid.Make().String()
	logger := s.logger.With("request_id", requestID, "url", input.URL)

	outcome := metrics.OutcomeError
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveDispatch(outcome, time.Since(start))
		}
	}()

	mapping, err := s.matchMapping(ctx, input.URL)
	if err != nil {
		if extract.IsKind(err, extract.KindNotFound) {
			outcome = metrics.OutcomeNoMatch
			logger.Info("no mapping matched")
		}
		return nil, err
	}
	logger = logger.With("mapping_id", mapping.ID)

	configuration, err := s.loadConfiguration(ctx, mapping)
	if err != nil {
		return nil, err
	}

	if err := s.checkRate(mapping); err != nil {
		outcome = metrics.OutcomeRateLimited
		if ee, ok := extract.AsError(err); ok {
			logger.Warn("rate limit exceeded", "retry_after", ee.RetryAfter)
		}
		return nil, err
	}

	strat, extractors, err := s.resolveExtractors(mapping, input.Overrides)
	if err != nil {
		logger.Error("extractor resolution failed", "error", err)
		return nil, err
	}

	record, err := strat.Extract(ctx, input.URL, input.Content, nil)
	if err != nil {
		logger.Error("extraction failed",
			"extractor", strat.Name(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	elapsed := time.Since(start)
	annotateDispatch(record, mapping, requestID, extractors, elapsed)

	outcome = metrics.OutcomeSuccess
	logger.Info("dispatch complete",
		"extractor", strat.Name(),
		"extractors", extractors,
		"fields", len(record),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return &DispatchResult{
		Record:        record,
		RequestID:     requestID,
		Mapping:       mapping,
		Configuration: configuration,
		ExtractorUsed: strat.Name(),
		Extractors:    extractors,
		Elapsed:       elapsed,
	}, nil
}

// matchMapping returns the highest-priority active mapping for url.
func (s *DispatchService) matchMapping(ctx context.Context, url string) (*models.URLMapping, error) {
	mappings, err := s.repos.URLMappings.GetByURL(ctx, url)
	if err != nil {
		return nil, extract.Wrap(extract.KindDatabase, "match url mappings", err)
	}
	if len(mappings) == 0 {
		return nil, extract.Newf(extract.KindNotFound, "no active url mapping matches %q", url)
	}
	return mappings[0], nil
}

func (s *DispatchService) loadConfiguration(ctx context.Context, mapping *models.URLMapping) (*models.URLConfiguration, error) {
	configuration, err := s.repos.URLConfigurations.GetByID(ctx, mapping.URLConfigID)
	if err != nil {
		return nil, extract.Wrap(extract.KindDatabase, "load url configuration", err)
	}
	if configuration == nil {
		return nil, extract.Newf(extract.KindNotFound, "url configuration %s not found", mapping.URLConfigID)
	}
	return configuration, nil
}

// checkRate spends one request from the mapping's fixed-window budget.
func (s *DispatchService) checkRate(mapping *models.URLMapping) error {
	limit := mapping.RateLimit
	if limit <= 0 {
		limit = constants.DefaultRateLimit
	}
	decision := s.ledger.Allow(mapping.ID, limit)
	if decision.Allowed {
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordRateLimitRejection()
	}
	return &extract.Error{
		Kind:       extract.KindRateLimit,
		Detail:     fmt.Sprintf("rate limit of %d requests per %s exceeded for mapping %s", limit, s.ledger.Window(), mapping.ID),
		RetryAfter: decision.RetryAfter,
	}
}

// resolveExtractors builds every extractor the mapping names. A single
// extractor runs directly; several run as a composite whose merge mode the
// mapping may override through crawler_settings.merge_mode.
func (s *DispatchService) resolveExtractors(mapping *models.URLMapping, overrides map[string]any) (extract.Strategy, []string, error) {
	subs := make([]extract.Strategy, 0, len(mapping.ExtractorIDs))
	names := make([]string, 0, len(mapping.ExtractorIDs))
	for _, id := range mapping.ExtractorIDs {
		strat, err := s.factory.Create(id, overrides)
		if err != nil {
			return nil, nil, extract.Wrap(extract.KindConfiguration,
				fmt.Sprintf("mapping %s: extractor %q", mapping.ID, id), err)
		}
		subs = append(subs, strat)
		names = append(names, strat.Name())
	}

	if len(subs) == 1 {
		return subs[0], names, nil
	}

	strat, err := s.factory.Compose(subs, extract.CompositeConfig{
		MergeMode: mappingMergeMode(mapping),
	})
	if err != nil {
		return nil, nil, err
	}
	return strat, names, nil
}

// mappingMergeMode reads an optional merge_mode from crawler_settings.
func mappingMergeMode(mapping *models.URLMapping) string {
	mode, _ := mapping.CrawlerSettings["merge_mode"].(string)
	return mode
}

func annotateDispatch(record extract.Record, mapping *models.URLMapping, requestID string, extractors []string, elapsed time.Duration) {
	meta, _ := record[extract.MetadataKey].(map[string]any)
	if meta == nil {
		meta = make(map[string]any)
		record[extract.MetadataKey] = meta
	}
	meta["mapping_id"] = mapping.ID
	meta["url_config_id"] = mapping.URLConfigID
	meta["matched_url"] = mapping.URL
	meta["extractors_used"] = extractors
	meta["elapsed_ms"] = elapsed.Milliseconds()
	meta["request_id"] = requestID
}
