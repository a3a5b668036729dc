package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/models"
	"github.com/jmylchreest/harvest-api/internal/repository"
)

// URLMappingHandler handles url_mapping endpoints.
type URLMappingHandler struct {
	mappings repository.URLMappingRepository
	configs  repository.URLConfigurationRepository
	logger   *slog.Logger
}

// NewURLMappingHandler creates a new url_mapping handler.
func NewURLMappingHandler(mappings repository.URLMappingRepository, configs repository.URLConfigurationRepository, logger *slog.Logger) *URLMappingHandler {
	return &URLMappingHandler{
		mappings: mappings,
		configs:  configs,
		logger:   logger.With("component", "urlmapping-handler"),
	}
}

// ListURLMappingsInput represents list request parameters.
type ListURLMappingsInput struct {
	ActiveOnly bool   `query:"active_only" doc:"Only return active mappings"`
	Limit      int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of results"`
	Skip       int    `query:"skip" default:"0" minimum:"0" doc:"Number of results to skip"`
	SortOrder  string `query:"sort_order" default:"desc" enum:"asc,desc" doc:"Sort direction by last update"`
}

// ListURLMappingsOutput represents list response.
type ListURLMappingsOutput struct {
	Body []*models.URLMapping
}

// ListURLMappings returns stored mappings.
func (h *URLMappingHandler) ListURLMappings(ctx context.Context, input *ListURLMappingsInput) (*ListURLMappingsOutput, error) {
	mappings, err := h.mappings.GetAll(ctx, repository.ListOptions{
		ActiveOnly: input.ActiveOnly,
		Limit:      input.Limit,
		Offset:     input.Skip,
		SortOrder:  input.SortOrder,
	})
	if err != nil {
		return nil, apiError(err)
	}
	if mappings == nil {
		mappings = []*models.URLMapping{}
	}
	return &ListURLMappingsOutput{Body: mappings}, nil
}

// CreateURLMappingInput represents create request.
type CreateURLMappingInput struct {
	Body struct {
		URLConfigID     string         `json:"url_config_id" minLength:"1" doc:"Configuration this mapping belongs to"`
		URL             string         `json:"url" minLength:"1" doc:"URL the mapping routes"`
		ExtractorIDs    []string       `json:"extractor_ids" minItems:"1" doc:"Extractors to run, in declaration order"`
		RateLimit       int            `json:"rate_limit,omitempty" minimum:"1" doc:"Requests per minute, defaults to 60"`
		Priority        int            `json:"priority,omitempty" minimum:"1" maximum:"10" doc:"Routing priority 1-10, defaults to 1"`
		CrawlerSettings map[string]any `json:"crawler_settings,omitempty" doc:"Crawler options, including merge_mode for multi-extractor mappings"`
		ValidationRules map[string]any `json:"validation_rules,omitempty" doc:"Result validation rules"`
		Metadata        map[string]any `json:"metadata,omitempty" doc:"Free-form metadata"`
		IsActive        *bool          `json:"is_active,omitempty" doc:"Defaults to active"`
		Tags            []string       `json:"tags,omitempty" doc:"Labels for search"`
		Notes           string         `json:"notes,omitempty" doc:"Operator notes"`
		Category        string         `json:"category,omitempty" doc:"Mapping category"`
	}
}

// CreateURLMappingOutput represents create response.
type CreateURLMappingOutput struct {
	Body models.URLMapping
}

// CreateURLMapping stores a new mapping. The referenced configuration must
// exist.
func (h *URLMappingHandler) CreateURLMapping(ctx context.Context, input *CreateURLMappingInput) (*CreateURLMappingOutput, error) {
	mapping := &models.URLMapping{
		ID:              uuid.NewString(),
		URLConfigID:     input.Body.URLConfigID,
		URL:             input.Body.URL,
		ExtractorIDs:    input.Body.ExtractorIDs,
		RateLimit:       input.Body.RateLimit,
		Priority:        input.Body.Priority,
		CrawlerSettings: input.Body.CrawlerSettings,
		ValidationRules: input.Body.ValidationRules,
		Metadata:        input.Body.Metadata,
		IsActive:        true,
		Tags:            input.Body.Tags,
		Notes:           input.Body.Notes,
		Category:        input.Body.Category,
	}
	if mapping.RateLimit == 0 {
		mapping.RateLimit = constants.DefaultRateLimit
	}
	if mapping.Priority == 0 {
		mapping.Priority = 1
	}
	if input.Body.IsActive != nil {
		mapping.IsActive = *input.Body.IsActive
	}

	if err := mapping.Validate(); err != nil {
		return nil, NewAPIError(http.StatusUnprocessableEntity, string(extract.KindValidation), err.Error())
	}

	cfg, err := h.configs.GetByID(ctx, mapping.URLConfigID)
	if err != nil {
		return nil, apiError(err)
	}
	if cfg == nil {
		return nil, NewAPIError(http.StatusUnprocessableEntity, string(extract.KindValidation),
			fmt.Sprintf("url_config_id %q does not exist", mapping.URLConfigID))
	}

	if err := h.mappings.Create(ctx, mapping); err != nil {
		return nil, apiError(err)
	}

	h.logger.Info("url mapping created", "id", mapping.ID, "url", mapping.URL, "extractors", mapping.ExtractorIDs)
	return &CreateURLMappingOutput{Body: *mapping}, nil
}

// GetURLMappingInput represents get request.
type GetURLMappingInput struct {
	ID string `path:"id" doc:"Mapping ID"`
}

// GetURLMappingOutput represents get response.
type GetURLMappingOutput struct {
	Body models.URLMapping
}

// GetURLMapping retrieves a single mapping by ID.
func (h *URLMappingHandler) GetURLMapping(ctx context.Context, input *GetURLMappingInput) (*GetURLMappingOutput, error) {
	mapping, err := h.mappings.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if mapping == nil {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url mapping not found")
	}
	return &GetURLMappingOutput{Body: *mapping}, nil
}

// UpdateURLMappingInput represents a partial update request. Absent fields
// are left unchanged.
type UpdateURLMappingInput struct {
	ID   string `path:"id" doc:"Mapping ID"`
	Body models.URLMappingUpdate
}

// UpdateURLMappingOutput represents update response.
type UpdateURLMappingOutput struct {
	Body models.URLMapping
}

// UpdateURLMapping applies the provided fields and returns the updated
// mapping.
func (h *URLMappingHandler) UpdateURLMapping(ctx context.Context, input *UpdateURLMappingInput) (*UpdateURLMappingOutput, error) {
	if err := input.Body.Validate(); err != nil {
		return nil, NewAPIError(http.StatusUnprocessableEntity, string(extract.KindValidation), err.Error())
	}

	updated, err := h.mappings.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	if !updated {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url mapping not found")
	}

	mapping, err := h.mappings.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if mapping == nil {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url mapping not found")
	}
	return &UpdateURLMappingOutput{Body: *mapping}, nil
}

// DeleteURLMappingInput represents delete request.
type DeleteURLMappingInput struct {
	ID string `path:"id" doc:"Mapping ID"`
}

// DeleteURLMappingOutput is empty; the endpoint answers 204.
type DeleteURLMappingOutput struct{}

// DeleteURLMapping removes a mapping.
func (h *URLMappingHandler) DeleteURLMapping(ctx context.Context, input *DeleteURLMappingInput) (*DeleteURLMappingOutput, error) {
	deleted, err := h.mappings.Delete(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if !deleted {
		return nil, NewAPIError(http.StatusNotFound, string(extract.KindNotFound), "url mapping not found")
	}

	h.logger.Info("url mapping deleted", "id", input.ID)
	return &DeleteURLMappingOutput{}, nil
}

// SearchURLMappingsInput represents search request.
type SearchURLMappingsInput struct {
	Query string `query:"q" required:"true" minLength:"1" doc:"Search term, matched against URL, tags, notes and category"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"1000" doc:"Maximum number of results"`
}

// SearchURLMappingsOutput represents search response.
type SearchURLMappingsOutput struct {
	Body []*models.URLMapping
}

// SearchURLMappings returns mappings matching a query.
func (h *URLMappingHandler) SearchURLMappings(ctx context.Context, input *SearchURLMappingsInput) (*SearchURLMappingsOutput, error) {
	mappings, err := h.mappings.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, apiError(err)
	}
	if mappings == nil {
		mappings = []*models.URLMapping{}
	}
	return &SearchURLMappingsOutput{Body: mappings}, nil
}

// URLMappingStatsOutput represents store statistics.
type URLMappingStatsOutput struct {
	Body models.URLMappingStats
}

// URLMappingStats summarizes the mapping store.
func (h *URLMappingHandler) URLMappingStats(ctx context.Context, input *struct{}) (*URLMappingStatsOutput, error) {
	stats, err := h.mappings.Stats(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &URLMappingStatsOutput{Body: *stats}, nil
}

// MappingsByExtractorInput represents by-extractor request.
type MappingsByExtractorInput struct {
	ExtractorID string `path:"extractor_id" doc:"Extractor ID"`
}

// MappingsByExtractorOutput represents by-extractor response.
type MappingsByExtractorOutput struct {
	Body []*models.URLMapping
}

// MappingsByExtractor returns mappings that reference an extractor.
func (h *URLMappingHandler) MappingsByExtractor(ctx context.Context, input *MappingsByExtractorInput) (*MappingsByExtractorOutput, error) {
	mappings, err := h.mappings.GetByExtractor(ctx, input.ExtractorID)
	if err != nil {
		return nil, apiError(err)
	}
	if mappings == nil {
		mappings = []*models.URLMapping{}
	}
	return &MappingsByExtractorOutput{Body: mappings}, nil
}

// MappingsByURLConfigInput represents by-url-config request.
type MappingsByURLConfigInput struct {
	URLConfigID string `path:"url_config_id" doc:"Configuration ID"`
}

// MappingsByURLConfigOutput represents by-url-config response.
type MappingsByURLConfigOutput struct {
	Body []*models.URLMapping
}

// MappingsByURLConfig returns mappings belonging to a configuration.
func (h *URLMappingHandler) MappingsByURLConfig(ctx context.Context, input *MappingsByURLConfigInput) (*MappingsByURLConfigOutput, error) {
	mappings, err := h.mappings.GetByURLConfig(ctx, input.URLConfigID)
	if err != nil {
		return nil, apiError(err)
	}
	if mappings == nil {
		mappings = []*models.URLMapping{}
	}
	return &MappingsByURLConfigOutput{Body: mappings}, nil
}

// BulkStatusInput represents a bulk activation request.
type BulkStatusInput struct {
	Body struct {
		MappingIDs []string `json:"mapping_ids" doc:"IDs of the mappings to update, at most 100"`
		IsActive   bool     `json:"is_active" doc:"Target active state"`
	}
}

// BulkStatusOutput represents a bulk activation response.
type BulkStatusOutput struct {
	Body struct {
		Updated int `json:"updated" doc:"Number of mappings changed"`
	}
}

// BulkStatus flips is_active for a batch of mappings.
func (h *URLMappingHandler) BulkStatus(ctx context.Context, input *BulkStatusInput) (*BulkStatusOutput, error) {
	if len(input.Body.MappingIDs) == 0 {
		return nil, NewAPIError(http.StatusBadRequest, string(extract.KindValidation), "mapping_ids must not be empty")
	}
	if len(input.Body.MappingIDs) > constants.MaxBulkStatusItems {
		return nil, NewAPIError(http.StatusBadRequest, string(extract.KindValidation),
			fmt.Sprintf("mapping_ids must contain at most %d ids, got %d", constants.MaxBulkStatusItems, len(input.Body.MappingIDs)))
	}

	updated, err := h.mappings.BulkSetActive(ctx, input.Body.MappingIDs, input.Body.IsActive)
	if err != nil {
		return nil, apiError(err)
	}

	h.logger.Info("url mappings bulk status", "count", updated, "active", input.Body.IsActive)
	output := &BulkStatusOutput{}
	output.Body.Updated = updated
	return output, nil
}
