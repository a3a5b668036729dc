// Package models defines the domain models for the application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// URLConfiguration is a business profile describing why a URL is worth
// extracting from and what data it should yield. Mappings reference a
// configuration and are removed with it.
type URLConfiguration struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	URL                string         `json:"url"`
	ProfileType        string         `json:"profile_type"`
	Category           string         `json:"category,omitempty"`
	BusinessPriority   int            `json:"business_priority"`
	KeyDataPoints      []string       `json:"key_data_points,omitempty"`
	TargetData         map[string]any `json:"target_data,omitempty"`
	CostAnalysis       map[string]any `json:"cost_analysis,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	ScrapingDifficulty string         `json:"scraping_difficulty,omitempty"`
	APIPricing         string         `json:"api_pricing,omitempty"`
	Recommendation     string         `json:"recommendation,omitempty"`
	Rationale          string         `json:"rationale,omitempty"`
	BusinessValue      string         `json:"business_value,omitempty"`
	ComplianceNotes    string         `json:"compliance_notes,omitempty"`
	HasOfficialAPI     bool           `json:"has_official_api"`
	IsActive           bool           `json:"is_active"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Validate checks the configuration's required fields and ranges.
func (c *URLConfiguration) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("url must not be empty")
	}
	if c.BusinessPriority < 1 || c.BusinessPriority > 10 {
		return fmt.Errorf("business_priority must be between 1 and 10, got %d", c.BusinessPriority)
	}
	return nil
}

// URLConfigurationUpdate is a partial update. Nil fields are left unchanged.
type URLConfigurationUpdate struct {
	Name               *string         `json:"name,omitempty"`
	Description        *string         `json:"description,omitempty"`
	URL                *string         `json:"url,omitempty"`
	ProfileType        *string         `json:"profile_type,omitempty"`
	Category           *string         `json:"category,omitempty"`
	BusinessPriority   *int            `json:"business_priority,omitempty"`
	KeyDataPoints      *[]string       `json:"key_data_points,omitempty"`
	TargetData         *map[string]any `json:"target_data,omitempty"`
	CostAnalysis       *map[string]any `json:"cost_analysis,omitempty"`
	Metadata           *map[string]any `json:"metadata,omitempty"`
	ScrapingDifficulty *string         `json:"scraping_difficulty,omitempty"`
	APIPricing         *string         `json:"api_pricing,omitempty"`
	Recommendation     *string         `json:"recommendation,omitempty"`
	Rationale          *string         `json:"rationale,omitempty"`
	BusinessValue      *string         `json:"business_value,omitempty"`
	ComplianceNotes    *string         `json:"compliance_notes,omitempty"`
	HasOfficialAPI     *bool           `json:"has_official_api,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"`
}

// Validate checks the provided fields of a partial update.
func (u *URLConfigurationUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if u.URL != nil && strings.TrimSpace(*u.URL) == "" {
		return fmt.Errorf("url must not be empty")
	}
	if u.BusinessPriority != nil && (*u.BusinessPriority < 1 || *u.BusinessPriority > 10) {
		return fmt.Errorf("business_priority must be between 1 and 10, got %d", *u.BusinessPriority)
	}
	return nil
}

// URLMapping binds a URL to the ordered extractors that should run against
// it, together with per-mapping rate limiting and routing priority.
type URLMapping struct {
	ID              string         `json:"id"`
	URLConfigID     string         `json:"url_config_id"`
	URL             string         `json:"url"`
	ExtractorIDs    []string       `json:"extractor_ids"`
	RateLimit       int            `json:"rate_limit"`
	Priority        int            `json:"priority"`
	CrawlerSettings map[string]any `json:"crawler_settings,omitempty"`
	ValidationRules map[string]any `json:"validation_rules,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IsActive        bool           `json:"is_active"`
	Tags            []string       `json:"tags,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Category        string         `json:"category,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate checks the mapping's required fields and ranges.
func (m *URLMapping) Validate() error {
	if strings.TrimSpace(m.URLConfigID) == "" {
		return fmt.Errorf("url_config_id must not be empty")
	}
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("url must not be empty")
	}
	if len(m.ExtractorIDs) == 0 {
		return fmt.Errorf("extractor_ids must contain at least one extractor")
	}
	for i, id := range m.ExtractorIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("extractor_ids[%d] must not be empty", i)
		}
	}
	if m.RateLimit < 1 {
		return fmt.Errorf("rate_limit must be at least 1, got %d", m.RateLimit)
	}
	if m.Priority < 1 || m.Priority > 10 {
		return fmt.Errorf("priority must be between 1 and 10, got %d", m.Priority)
	}
	return nil
}

// URLMappingUpdate is a partial update. Nil fields are left unchanged.
type URLMappingUpdate struct {
	URL             *string         `json:"url,omitempty"`
	ExtractorIDs    *[]string       `json:"extractor_ids,omitempty"`
	RateLimit       *int            `json:"rate_limit,omitempty"`
	Priority        *int            `json:"priority,omitempty"`
	CrawlerSettings *map[string]any `json:"crawler_settings,omitempty"`
	ValidationRules *map[string]any `json:"validation_rules,omitempty"`
	Metadata        *map[string]any `json:"metadata,omitempty"`
	IsActive        *bool           `json:"is_active,omitempty"`
	Tags            *[]string       `json:"tags,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Category        *string         `json:"category,omitempty"`
}

// Validate checks the provided fields of a partial update.
func (u *URLMappingUpdate) Validate() error {
	if u.URL != nil && strings.TrimSpace(*u.URL) == "" {
		return fmt.Errorf("url must not be empty")
	}
	if u.ExtractorIDs != nil {
		if len(*u.ExtractorIDs) == 0 {
			return fmt.Errorf("extractor_ids must contain at least one extractor")
		}
		for i, id := range *u.ExtractorIDs {
			if strings.TrimSpace(id) == "" {
				return fmt.Errorf("extractor_ids[%d] must not be empty", i)
			}
		}
	}
	if u.RateLimit != nil && *u.RateLimit < 1 {
		return fmt.Errorf("rate_limit must be at least 1, got %d", *u.RateLimit)
	}
	if u.Priority != nil && (*u.Priority < 1 || *u.Priority > 10) {
		return fmt.Errorf("priority must be between 1 and 10, got %d", *u.Priority)
	}
	return nil
}

// URLConfigurationStats summarizes the configuration store.
type URLConfigurationStats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	ByCategory    map[string]int `json:"by_category"`
	ByProfileType map[string]int `json:"by_profile_type"`
}

// URLMappingStats summarizes the mapping store.
type URLMappingStats struct {
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	ByCategory  map[string]int `json:"by_category"`
	ByExtractor map[string]int `json:"by_extractor"`
}
