package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/models"
	"github.com/jmylchreest/harvest-api/internal/repository"
)

// URLConfigurationHandler handles url_configuration endpoints.
type URLConfigurationHandler struct {
	repo   repository.URLConfigurationRepository
	logger *slog.Logger
}

// NewURLConfigurationHandler creates a new url_configuration handler.
func NewURLConfigurationHandler(repo repository.URLConfigurationRepository, logger *slog.Logger) *URLConfigurationHandler {
	return &URLConfigurationHandler{repo: repo, logger: logger.With("component", "urlconfig-handler")}
}

// ListURLConfigurationsInput represents list request parameters.
type ListURLConfigurationsInput struct {
	ActiveOnly bool   `query:"active_only" doc:"Only return active configurations"`
	Limit      int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of results"`
	Skip       int    `query:"skip" default:"0" minimum:"0" doc:"Number of results to skip"`
	SortOrder  string `query:"sort_order" default:"desc" enum:"asc,desc" doc:"Sort direction by last update"`
}

// ListURLConfigurationsOutput represents list response.
type ListURLConfigurationsOutput struct {
	Body []*models.URLConfiguration
}

// ListURLConfigurations returns stored configurations.
func (h *URLConfigurationHandler) ListURLConfigurations(ctx context.Context, input *ListURLConfigurationsInput) (*ListURLConfigurationsOutput, error) {
	configs, err := h.repo.GetAll(ctx, repository.ListOptions{
		ActiveOnly: input.ActiveOnly,
		Limit:      input.Limit,
		Offset:     input.Skip,
		SortOrder:  input.SortOrder,
	})
	if err != nil {
		return nil, apiError(err)
	}
	if configs == nil {
		configs = []*models.URLConfiguration{}
	}
	return &ListURLConfigurationsOutput{Body: configs}, nil
}

// CreateURLConfigurationInput represents create request.
type CreateURLConfigurationInput struct {
	Body struct {
		Name               string         `json:"name" minLength:"1" doc:"Unique configuration name"`
		Description        string         `json:"description,omitempty" doc:"What this source is"`
		URL                string         `json:"url" minLength:"1" doc:"Source URL the profile describes"`
		ProfileType        string         `json:"profile_type,omitempty" doc:"Profile classification"`
		Category           string         `json:"category,omitempty" doc:"Business category"`
		BusinessPriority   int            `json:"business_priority,omitempty" minimum:"1" maximum:"10" doc:"Business priority 1-10, defaults to 5"`
		KeyDataPoints      []string       `json:"key_data_points,omitempty" doc:"Data points this source should yield"`
		TargetData         map[string]any `json:"target_data,omitempty" doc:"Structured description of the target data"`
		CostAnalysis       map[string]any `json:"cost_analysis,omitempty" doc:"Extraction cost analysis"`
		Metadata           map[string]any `json:"metadata,omitempty" doc:"Free-form metadata"`
		ScrapingDifficulty string         `json:"scraping_difficulty,omitempty" doc:"Qualitative difficulty assessment"`
		APIPricing         string         `json:"api_pricing,omitempty" doc:"Pricing of an official API, when one exists"`
		Recommendation     string         `json:"recommendation,omitempty" doc:"Sourcing recommendation"`
		Rationale          string         `json:"rationale,omitempty" doc:"Why this source matters"`
		BusinessValue      string         `json:"business_value,omitempty" doc:"Value statement"`
		ComplianceNotes    string         `json:"compliance_notes,omitempty" doc:"Compliance considerations"`
		HasOfficialAPI     bool           `json:"has_official_api,omitempty" doc:"Whether an official API exists"`
		IsActive           *bool          `json:"is_active,omitempty" doc:"Defaults to active"`
	}
}

// CreateURLConfigurationOutput represents create response.
type CreateURLConfigurationOutput struct {
	Body models.URLConfiguration
}

// CreateURLConfiguration stores a new configuration. Names are unique;
// collisions answer 409.
func (h *URLConfigurationHandler) CreateURLConfiguration(ctx context.Context, input *CreateURLConfigurationInput) (*CreateURLConfigurationOutput, error) {
	cfg := &models.URLConfiguration{
		ID:                 uuid.NewString(),
		Name:               input.Body.Name,
		Description:        input.Body.Description,
		URL:                input.Body.URL,
		ProfileType:        input.Body.ProfileType,
		Category:           input.Body.Category,
		BusinessPriority:   input.Body.BusinessPriority,
		KeyDataPoints:      input.Body.KeyDataPoints,
		TargetData:         input.Body.TargetData,
		CostAnalysis:       input.Body.CostAnalysis,
		Metadata:           input.Body.Metadata,
		ScrapingDifficulty: input.Body.ScrapingDifficulty,
		APIPricing:         input.Body.APIPricing,
		Recommendation:     input.Body.Recommendation,
		Rationale:          input.Body.Rationale,
		BusinessValue:      input.Body.BusinessValue,
		ComplianceNotes:    input.Body.ComplianceNotes,
		HasOfficialAPI:     input.Body.HasOfficialAPI,
		IsActive:           true,
	}
	if cfg.BusinessPriority == 0 {
		cfg.BusinessPriority = 5
	}
	if input.Body.IsActive != nil {
		cfg.IsActive = *input.Body.IsActive
	}

	if err := cfg.Validate(); err != nil {
		return nil, NewAPIError(http.StatusUnprocessableEntity, string(extract.KindValidation), err.Error())
	}

	if err := h.repo.Create(ctx, cfg); err != nil {
		return nil, apiError(err)
	}

	h.logger.Info("url configuration created", "id", cfg.ID, "name", cfg.Name)
	return &CreateURLConfigurationOutput{Body: *cfg}, nil
}

// GetURLConfigurationInput represents get request.
type GetURLConfigurationInput struct {
	ID string `path:"id" doc:"Configuration ID"`
}

// GetURLConfigurationOutput represents get response.
type GetURLConfigurationOutput struct {
	Body models.URLConfiguration
}

// GetURLConfiguration retrieves a single configuration by ID.
func (h *URLConfigurationHandler) GetURLConfiguration(ctx context.Context, input *GetURLConfigurationInput) (*GetURLConfigurationOutput, error) {
	cfg, err := h.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if cfg == nil {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url configuration not found")
	}
	return &GetURLConfigurationOutput{Body: *cfg}, nil
}

// UpdateURLConfigurationInput represents a partial update request. Absent
// fields are left unchanged.
type UpdateURLConfigurationInput struct {
	ID   string `path:"id" doc:"Configuration ID"`
	Body models.URLConfigurationUpdate
}

// UpdateURLConfigurationOutput represents update response.
type UpdateURLConfigurationOutput struct {
	Body models.URLConfiguration
}

// UpdateURLConfiguration applies the provided fields and returns the
// updated configuration.
func (h *URLConfigurationHandler) UpdateURLConfiguration(ctx context.Context, input *UpdateURLConfigurationInput) (*UpdateURLConfigurationOutput, error) {
	if err := input.Body.Validate(); err != nil {
		return nil, NewAPIError(http.StatusUnprocessableEntity, string(extract.KindValidation), err.Error())
	}

	updated, err := h.repo.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	if !updated {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url configuration not found")
	}

	cfg, err := h.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if cfg == nil {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url configuration not found")
	}
	return &UpdateURLConfigurationOutput{Body: *cfg}, nil
}

// DeleteURLConfigurationInput represents delete request.
type DeleteURLConfigurationInput struct {
	ID string `path:"id" doc:"Configuration ID"`
}

// DeleteURLConfigurationOutput is empty; the endpoint answers 204.
type DeleteURLConfigurationOutput struct{}

// DeleteURLConfiguration removes a configuration and, through the cascade,
// its mappings.
func (h *URLConfigurationHandler) DeleteURLConfiguration(ctx context.Context, input *DeleteURLConfigurationInput) (*DeleteURLConfigurationOutput, error) {
	deleted, err := h.repo.Delete(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if !deleted {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url configuration not found")
	}

	h.logger.Info("url configuration deleted", "id", input.ID)
	return &DeleteURLConfigurationOutput{}, nil
}

// SearchURLConfigurationsInput represents search request.
type SearchURLConfigurationsInput struct {
	Query string `query:"q" required:"true" minLength:"1" doc:"Search term, matched against name, description, URL and category"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"1000" doc:"Maximum number of results"`
}

// SearchURLConfigurationsOutput represents search response.
type SearchURLConfigurationsOutput struct {
	Body []*models.URLConfiguration
}

// SearchURLConfigurations returns configurations matching a query.
func (h *URLConfigurationHandler) SearchURLConfigurations(ctx context.Context, input *SearchURLConfigurationsInput) (*SearchURLConfigurationsOutput, error) {
	configs, err := h.repo.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, apiError(err)
	}
	if configs == nil {
		configs = []*models.URLConfiguration{}
	}
	return &SearchURLConfigurationsOutput{Body: configs}, nil
}

// URLConfigurationStatsOutput represents store statistics.
type URLConfigurationStatsOutput struct {
	Body models.URLConfigurationStats
}

// URLConfigurationStats summarizes the configuration store.
func (h *URLConfigurationHandler) URLConfigurationStats(ctx context.Context, input *struct{}) (*URLConfigurationStatsOutput, error) {
	stats, err := h.repo.Stats(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &URLConfigurationStatsOutput{Body: *stats}, nil
}
