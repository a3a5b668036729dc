package service

import (
	"log/slog"

	"github.com/jmylchreest/harvest-api/internal/extract"
)

// ExtractorService exposes the strategy catalog to the API.
type ExtractorService struct {
	factory *extract.Factory
	logger  *slog.Logger
}

// NewExtractorService creates an extractor catalog service.
func NewExtractorService(factory *extract.Factory, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{
		factory: factory,
		logger:  logger.With("component", "extractors"),
	}
}

// List returns every registered strategy's metadata, sorted by name.
func (s *ExtractorService) List() []extract.Metadata {
	return s.factory.Registry().List()
}

// Get returns one strategy's metadata.
func (s *ExtractorService) Get(id string) (*extract.Metadata, error) {
	entry, ok := s.factory.Registry().Get(id)
	if !ok {
		return nil, extract.Newf(extract.KindNotFound, "extractor %q not found", id)
	}
	meta := entry.Metadata
	return &meta, nil
}

// Reload clears the registry and re-runs its loaders, picking up strategy
// definition files changed on disk. Returns how many strategies are
// registered afterwards.
func (s *ExtractorService) Reload() (int, error) {
	n, err := s.factory.Registry().Reload()
	if err != nil {
		s.logger.Warn("registry reload failed", "registered", n, "error", err)
		return n, extract.Wrap(extract.KindConfiguration, "reload strategies", err)
	}
	s.logger.Info("registry reloaded", "registered", n)
	return n, nil
}
