package handlers

import (
	"context"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/service"
)

// ExtractorHandler handles extraction strategy catalog endpoints.
type ExtractorHandler struct {
	svc *service.ExtractorService
}

// NewExtractorHandler creates a new extractor handler.
func NewExtractorHandler(svc *service.ExtractorService) *ExtractorHandler {
	return &ExtractorHandler{svc: svc}
}

// ExtractorInfo represents a registered extraction strategy in API
// responses. The ID equals the registered name.
type ExtractorInfo struct {
	ID           string         `json:"id" doc:"Extractor ID, same as the registered name"`
	Name         string         `json:"name" doc:"Registered strategy name"`
	Description  string         `json:"description,omitempty" doc:"What the strategy extracts"`
	Category     string         `json:"category,omitempty" doc:"Content category the strategy targets"`
	Version      string         `json:"version,omitempty" doc:"Strategy version"`
	OutputSchema map[string]any `json:"schema,omitempty" doc:"JSON Schema of the extraction result"`
	ConfigSchema map[string]any `json:"config_schema,omitempty" doc:"JSON Schema of the constructor config"`
	Source       string         `json:"file_path,omitempty" doc:"Registration origin"`
}

func extractorInfo(m extract.Metadata) ExtractorInfo {
	return ExtractorInfo{
		ID:           m.Name,
		Name:         m.Name,
		Description:  m.Description,
		Category:     m.Category,
		Version:      m.Version,
		OutputSchema: m.OutputSchema,
		ConfigSchema: m.ConfigSchema,
		Source:       m.Source,
	}
}

// ListExtractorsOutput represents the extractor catalog response.
type ListExtractorsOutput struct {
	Body []ExtractorInfo
}

// ListExtractors returns metadata for every registered strategy.
func (h *ExtractorHandler) ListExtractors(ctx context.Context, input *struct{}) (*ListExtractorsOutput, error) {
	metas := h.svc.List()

	output := &ListExtractorsOutput{Body: make([]ExtractorInfo, 0, len(metas))}
	for _, m := range metas {
		output.Body = append(output.Body, extractorInfo(m))
	}
	return output, nil
}

// GetExtractorInput represents get extractor request.
type GetExtractorInput struct {
	ID string `path:"id" doc:"Extractor ID"`
}

// GetExtractorOutput represents get extractor response.
type GetExtractorOutput struct {
	Body ExtractorInfo
}

// GetExtractor returns one strategy's metadata.
func (h *ExtractorHandler) GetExtractor(ctx context.Context, input *GetExtractorInput) (*GetExtractorOutput, error) {
	meta, err := h.svc.Get(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetExtractorOutput{Body: extractorInfo(*meta)}, nil
}

// ReloadExtractorsOutput represents reload response.
type ReloadExtractorsOutput struct {
	Body struct {
		Count int `json:"count" doc:"Number of strategies registered after the reload"`
	}
}

// ReloadExtractors rebuilds the strategy registry from its loaders.
func (h *ExtractorHandler) ReloadExtractors(ctx context.Context, input *struct{}) (*ReloadExtractorsOutput, error) {
	count, err := h.svc.Reload()
	if err != nil {
		return nil, apiError(err)
	}

	output := &ReloadExtractorsOutput{}
	output.Body.Count = count
	return output, nil
}
