// Package service contains the orchestration layer between the HTTP API,
// the strategy engine and the stores.
package service

import (
	"log/slog"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/fetcher"
	"github.com/jmylchreest/harvest-api/internal/metrics"
	"github.com/jmylchreest/harvest-api/internal/ratelimit"
	"github.com/jmylchreest/harvest-api/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Extractors *ExtractorService
	Dispatch   *DispatchService
	TestURL    *TestURLService
}

// NewServices wires the service layer over its infrastructure.
func NewServices(
	repos *repository.Repositories,
	factory *extract.Factory,
	ledger *ratelimit.Ledger,
	m *metrics.Metrics,
	f *fetcher.Fetcher,
	logger *slog.Logger,
) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	dispatch := NewDispatchService(repos, factory, ledger, m, logger)
	return &Services{
		Extractors: NewExtractorService(factory, logger),
		Dispatch:   dispatch,
		TestURL:    NewTestURLService(dispatch, factory, f, logger),
	}
}
