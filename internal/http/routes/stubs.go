package routes

import (
	"context"

	"github.com/jmylchreest/harvest-api/internal/http/handlers"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses - these are only used for OpenAPI
// generation where Huma extracts type information from function signatures.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck: stubHealthCheck,

		Livez:  stubLivez,
		Readyz: stubReadyz,

		Extractors:        &stubExtractorHandlers{},
		TestURL:           &stubTestURLHandlers{},
		URLConfigurations: &stubURLConfigurationHandlers{},
		URLMappings:       &stubURLMappingHandlers{},
	}
}

func stubHealthCheck(_ context.Context, _ *struct{}) (*handlers.HealthCheckOutput, error) {
	return nil, nil
}

func stubLivez(_ context.Context, _ *struct{}) (*handlers.LivezOutput, error) {
	return nil, nil
}

func stubReadyz(_ context.Context, _ *struct{}) (*handlers.ReadyzOutput, error) {
	return nil, nil
}

type stubExtractorHandlers struct{}

func (s *stubExtractorHandlers) ListExtractors(_ context.Context, _ *struct{}) (*handlers.ListExtractorsOutput, error) {
	return nil, nil
}

func (s *stubExtractorHandlers) GetExtractor(_ context.Context, _ *handlers.GetExtractorInput) (*handlers.GetExtractorOutput, error) {
	return nil, nil
}

func (s *stubExtractorHandlers) ReloadExtractors(_ context.Context, _ *struct{}) (*handlers.ReloadExtractorsOutput, error) {
	return nil, nil
}

type stubTestURLHandlers struct{}

func (s *stubTestURLHandlers) TestURL(_ context.Context, _ *handlers.TestURLInput) (*handlers.TestURLOutput, error) {
	return nil, nil
}

type stubURLConfigurationHandlers struct{}

func (s *stubURLConfigurationHandlers) ListURLConfigurations(_ context.Context, _ *handlers.ListURLConfigurationsInput) (*handlers.ListURLConfigurationsOutput, error) {
	return nil, nil
}

func (s *stubURLConfigurationHandlers) CreateURLConfiguration(_ context.Context, _ *handlers.CreateURLConfigurationInput) (*handlers.CreateURLConfigurationOutput, error) {
	return nil, nil
}

func (s *stubURLConfigurationHandlers) GetURLConfiguration(_ context.Context, _ *handlers.GetURLConfigurationInput) (*handlers.GetURLConfigurationOutput, error) {
	return nil, nil
}

func (s *stubURLConfigurationHandlers) UpdateURLConfiguration(_ context.Context, _ *handlers.UpdateURLConfigurationInput) (*handlers.UpdateURLConfigurationOutput, error) {
	return nil, nil
}

func (s *stubURLConfigurationHandlers) DeleteURLConfiguration(_ context.Context, _ *handlers.DeleteURLConfigurationInput) (*handlers.DeleteURLConfigurationOutput, error) {
	return nil, nil
}

func (s *stubURLConfigurationHandlers) SearchURLConfigurations(_ context.Context, _ *handlers.SearchURLConfigurationsInput) (*handlers.SearchURLConfigurationsOutput, error) {
	return nil, nil
}

func (s *stubURLConfigurationHandlers) URLConfigurationStats(_ context.Context, _ *struct{}) (*handlers.URLConfigurationStatsOutput, error) {
	return nil, nil
}

type stubURLMappingHandlers struct{}

func (s *stubURLMappingHandlers) ListURLMappings(_ context.Context, _ *handlers.ListURLMappingsInput) (*handlers.ListURLMappingsOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) CreateURLMapping(_ context.Context, _ *handlers.CreateURLMappingInput) (*handlers.CreateURLMappingOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) GetURLMapping(_ context.Context, _ *handlers.GetURLMappingInput) (*handlers.GetURLMappingOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) UpdateURLMapping(_ context.Context, _ *handlers.UpdateURLMappingInput) (*handlers.UpdateURLMappingOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) DeleteURLMapping(_ context.Context, _ *handlers.DeleteURLMappingInput) (*handlers.DeleteURLMappingOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) SearchURLMappings(_ context.Context, _ *handlers.SearchURLMappingsInput) (*handlers.SearchURLMappingsOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) URLMappingStats(_ context.Context, _ *struct{}) (*handlers.URLMappingStatsOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) MappingsByExtractor(_ context.Context, _ *handlers.MappingsByExtractorInput) (*handlers.MappingsByExtractorOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) MappingsByURLConfig(_ context.Context, _ *handlers.MappingsByURLConfigInput) (*handlers.MappingsByURLConfigOutput, error) {
	return nil, nil
}

func (s *stubURLMappingHandlers) BulkStatus(_ context.Context, _ *handlers.BulkStatusInput) (*handlers.BulkStatusOutput, error) {
	return nil, nil
}
