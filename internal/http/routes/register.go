package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/harvest-api/internal/http/handlers"
	"github.com/jmylchreest/harvest-api/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
// Pass real handler implementations for the main server, or stub implementations
// for OpenAPI generation.
func Register(api huma.API, h *Handlers) {
	// Framework-generated errors (unparseable bodies, schema validation
	// failures) share the APIError body.
	huma.NewError = handlers.NewHumaError

	// =========================================================================
	// Health
	// =========================================================================

	mw.Get(api, "/api/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithOperationID("healthCheck"))

	// Kubernetes probes (hidden from docs - internal use only)
	mw.HiddenGet(api, "/healthz", h.Livez)
	mw.HiddenGet(api, "/readyz", h.Readyz)

	// =========================================================================
	// Extractors
	// =========================================================================

	mw.Get(api, "/api/extractors", h.Extractors.ListExtractors,
		mw.WithTags("Extractors"),
		mw.WithSummary("List extractors"),
		mw.WithOperationID("listExtractors"))
	mw.Get(api, "/api/extractors/{id}", h.Extractors.GetExtractor,
		mw.WithTags("Extractors"),
		mw.WithSummary("Get extractor"),
		mw.WithOperationID("getExtractor"))
	mw.Post(api, "/api/extractors/reload", h.Extractors.ReloadExtractors,
		mw.WithTags("Extractors"),
		mw.WithSummary("Reload extractors"),
		mw.WithDescription("Rebuilds the strategy registry from its loaders and returns the resulting strategy count."),
		mw.WithOperationID("reloadExtractors"))

	// =========================================================================
	// Extraction
	// =========================================================================

	mw.Post(api, "/api/test-url", h.TestURL.TestURL,
		mw.WithTags("Extraction"),
		mw.WithSummary("Test extraction against a URL"),
		mw.WithDescription("Runs one extraction. With extractor_id the named strategy runs directly; without it the URL is routed through the mapping catalog. Extraction failures report success=false in a 200 response."),
		mw.WithOperationID("testUrl"))

	// =========================================================================
	// URL Configurations
	// =========================================================================

	mw.Get(api, "/api/url-configurations", h.URLConfigurations.ListURLConfigurations,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("List URL configurations"),
		mw.WithOperationID("listUrlConfigurations"))
	mw.Post(api, "/api/url-configurations", h.URLConfigurations.CreateURLConfiguration,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("Create URL configuration"),
		mw.WithOperationID("createUrlConfiguration"),
		mw.WithDefaultStatus(http.StatusCreated))
	mw.Get(api, "/api/url-configurations/search", h.URLConfigurations.SearchURLConfigurations,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("Search URL configurations"),
		mw.WithOperationID("searchUrlConfigurations"))
	mw.Get(api, "/api/url-configurations/stats", h.URLConfigurations.URLConfigurationStats,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("URL configuration statistics"),
		mw.WithOperationID("getUrlConfigurationStats"))
	mw.Get(api, "/api/url-configurations/{id}", h.URLConfigurations.GetURLConfiguration,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("Get URL configuration"),
		mw.WithOperationID("getUrlConfiguration"))
	mw.Put(api, "/api/url-configurations/{id}", h.URLConfigurations.UpdateURLConfiguration,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("Update URL configuration"),
		mw.WithDescription("Partial update; absent fields are left unchanged."),
		mw.WithOperationID("updateUrlConfiguration"))
	mw.Delete(api, "/api/url-configurations/{id}", h.URLConfigurations.DeleteURLConfiguration,
		mw.WithTags("URL Configurations"),
		mw.WithSummary("Delete URL configuration"),
		mw.WithDescription("Deletes the configuration and every mapping that references it."),
		mw.WithOperationID("deleteUrlConfiguration"),
		mw.WithDefaultStatus(http.StatusNoContent))

	// =========================================================================
	// URL Mappings
	// =========================================================================

	mw.Get(api, "/api/url-mappings", h.URLMappings.ListURLMappings,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("List URL mappings"),
		mw.WithOperationID("listUrlMappings"))
	mw.Post(api, "/api/url-mappings", h.URLMappings.CreateURLMapping,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("Create URL mapping"),
		mw.WithOperationID("createUrlMapping"),
		mw.WithDefaultStatus(http.StatusCreated))
	mw.Get(api, "/api/url-mappings/search", h.URLMappings.SearchURLMappings,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("Search URL mappings"),
		mw.WithOperationID("searchUrlMappings"))
	mw.Get(api, "/api/url-mappings/stats", h.URLMappings.URLMappingStats,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("URL mapping statistics"),
		mw.WithOperationID("getUrlMappingStats"))
	mw.Get(api, "/api/url-mappings/by-extractor/{extractor_id}", h.URLMappings.MappingsByExtractor,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("List mappings using an extractor"),
		mw.WithOperationID("listUrlMappingsByExtractor"))
	mw.Get(api, "/api/url-mappings/by-url-config/{url_config_id}", h.URLMappings.MappingsByURLConfig,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("List mappings for a configuration"),
		mw.WithOperationID("listUrlMappingsByUrlConfig"))
	mw.Patch(api, "/api/url-mappings/bulk-status", h.URLMappings.BulkStatus,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("Bulk update mapping status"),
		mw.WithDescription("Flips is_active for up to 100 mappings at once."),
		mw.WithOperationID("bulkUpdateUrlMappingStatus"))
	mw.Get(api, "/api/url-mappings/{id}", h.URLMappings.GetURLMapping,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("Get URL mapping"),
		mw.WithOperationID("getUrlMapping"))
	mw.Put(api, "/api/url-mappings/{id}", h.URLMappings.UpdateURLMapping,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("Update URL mapping"),
		mw.WithDescription("Partial update; absent fields are left unchanged."),
		mw.WithOperationID("updateUrlMapping"))
	mw.Delete(api, "/api/url-mappings/{id}", h.URLMappings.DeleteURLMapping,
		mw.WithTags("URL Mappings"),
		mw.WithSummary("Delete URL mapping"),
		mw.WithOperationID("deleteUrlMapping"),
		mw.WithDefaultStatus(http.StatusNoContent))
}
