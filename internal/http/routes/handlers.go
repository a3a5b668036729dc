package routes

import (
	"context"

	"github.com/jmylchreest/harvest-api/internal/http/handlers"
)

// ExtractorHandlers defines the interface for strategy catalog operations.
type ExtractorHandlers interface {
	ListExtractors(ctx context.Context, input *struct{}) (*handlers.ListExtractorsOutput, error)
	GetExtractor(ctx context.Context, input *handlers.GetExtractorInput) (*handlers.GetExtractorOutput, error)
	ReloadExtractors(ctx context.Context, input *struct{}) (*handlers.ReloadExtractorsOutput, error)
}

// TestURLHandlers defines the interface for one-shot extraction tests.
type TestURLHandlers interface {
	TestURL(ctx context.Context, input *handlers.TestURLInput) (*handlers.TestURLOutput, error)
}

// URLConfigurationHandlers defines the interface for configuration CRUD.
type URLConfigurationHandlers interface {
	ListURLConfigurations(ctx context.Context, input *handlers.ListURLConfigurationsInput) (*handlers.ListURLConfigurationsOutput, error)
	CreateURLConfiguration(ctx context.Context, input *handlers.CreateURLConfigurationInput) (*handlers.CreateURLConfigurationOutput, error)
	GetURLConfiguration(ctx context.Context, input *handlers.GetURLConfigurationInput) (*handlers.GetURLConfigurationOutput, error)
	UpdateURLConfiguration(ctx context.Context, input *handlers.UpdateURLConfigurationInput) (*handlers.UpdateURLConfigurationOutput, error)
	DeleteURLConfiguration(ctx context.Context, input *handlers.DeleteURLConfigurationInput) (*handlers.DeleteURLConfigurationOutput, error)
	SearchURLConfigurations(ctx context.Context, input *handlers.SearchURLConfigurationsInput) (*handlers.SearchURLConfigurationsOutput, error)
	URLConfigurationStats(ctx context.Context, input *struct{}) (*handlers.URLConfigurationStatsOutput, error)
}

// URLMappingHandlers defines the interface for mapping CRUD and routing
// lookups.
type URLMappingHandlers interface {
	ListURLMappings(ctx context.Context, input *handlers.ListURLMappingsInput) (*handlers.ListURLMappingsOutput, error)
	CreateURLMapping(ctx context.Context, input *handlers.CreateURLMappingInput) (*handlers.CreateURLMappingOutput, error)
	GetURLMapping(ctx context.Context, input *handlers.GetURLMappingInput) (*handlers.GetURLMappingOutput, error)
	UpdateURLMapping(ctx context.Context, input *handlers.UpdateURLMappingInput) (*handlers.UpdateURLMappingOutput, error)
	DeleteURLMapping(ctx context.Context, input *handlers.DeleteURLMappingInput) (*handlers.DeleteURLMappingOutput, error)
	SearchURLMappings(ctx context.Context, input *handlers.SearchURLMappingsInput) (*handlers.SearchURLMappingsOutput, error)
	URLMappingStats(ctx context.Context, input *struct{}) (*handlers.URLMappingStatsOutput, error)
	MappingsByExtractor(ctx context.Context, input *handlers.MappingsByExtractorInput) (*handlers.MappingsByExtractorOutput, error)
	MappingsByURLConfig(ctx context.Context, input *handlers.MappingsByURLConfigInput) (*handlers.MappingsByURLConfigOutput, error)
	BulkStatus(ctx context.Context, input *handlers.BulkStatusInput) (*handlers.BulkStatusOutput, error)
}

// Handlers aggregates all handler interfaces for route registration.
// For the main server, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	HealthCheck func(ctx context.Context, input *struct{}) (*handlers.HealthCheckOutput, error)

	// Kubernetes probes (hidden from docs)
	Livez  func(ctx context.Context, input *struct{}) (*handlers.LivezOutput, error)
	Readyz func(ctx context.Context, input *struct{}) (*handlers.ReadyzOutput, error)

	Extractors        ExtractorHandlers
	TestURL           TestURLHandlers
	URLConfigurations URLConfigurationHandlers
	URLMappings       URLMappingHandlers
}
