// Package routes provides shared route registration for the API.
// This allows both the main server and the OpenAPI generator to use
// the same route definitions, ensuring the spec is always in sync.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/harvest-api/internal/version"
)

// NewHumaConfig creates the shared Huma configuration for the API.
// This includes API metadata and tag definitions.
func NewHumaConfig(baseURL string) huma.Config {
	cfg := huma.DefaultConfig("Harvest API", version.Get().Short())
	cfg.Info.Description = "Content extraction API that routes URLs through configurable LLM extraction strategies and returns structured JSON."

	// Disable $schema field in responses - it conflicts with "schema" fields
	// in the extractor catalog
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	// Define OpenAPI tags with display names for documentation
	cfg.Tags = []*huma.Tag{
		{Name: "Extractors", Description: "Extraction strategy catalog", Extensions: map[string]any{"x-displayName": "Extractors"}},
		{Name: "Extraction", Description: "One-shot extraction tests", Extensions: map[string]any{"x-displayName": "Extraction"}},
		{Name: "URL Configurations", Description: "Business profiles of extraction sources", Extensions: map[string]any{"x-displayName": "URL Configurations"}},
		{Name: "URL Mappings", Description: "URL to extractor routing with rate limits and priorities", Extensions: map[string]any{"x-displayName": "URL Mappings"}},
		{Name: "Health", Description: "System health and status", Extensions: map[string]any{"x-displayName": "Health"}},
	}

	return cfg
}
