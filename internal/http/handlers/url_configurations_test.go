package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/jmylchreest/harvest-api/internal/repository"
)

func newConfigHandler(t *testing.T) (*URLConfigurationHandler, *repository.Repositories) {
	t.Helper()
	repos := newTestRepos(t)
	return NewURLConfigurationHandler(repos.URLConfigurations, quietLogger()), repos
}

// ============================================================================
// Create
// ============================================================================

func TestCreateURLConfiguration(t *testing.T) {
	h, _ := newConfigHandler(t)

	input := &CreateURLConfigurationInput{}
	input.Body.Name = "binance-spot"
	input.Body.URL = "https://binance.com/en/markets"
	input.Body.Category = "crypto"
	input.Body.ProfileType = "market-data"

	output, err := h.CreateURLConfiguration(context.Background(), input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	cfg := output.Body
	if cfg.ID == "" {
		t.Error("expected generated ID")
	}
	if cfg.BusinessPriority != 5 {
		t.Errorf("expected default business_priority 5, got %d", cfg.BusinessPriority)
	}
	if !cfg.IsActive {
		t.Error("expected configuration to default to active")
	}
}

func TestCreateURLConfigurationInactive(t *testing.T) {
	h, _ := newConfigHandler(t)

	inactive := false
	input := &CreateURLConfigurationInput{}
	input.Body.Name = "parked-source"
	input.Body.URL = "https://example.com"
	input.Body.IsActive = &inactive

	output, err := h.CreateURLConfiguration(context.Background(), input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body.IsActive {
		t.Error("expected configuration to stay inactive")
	}
}

func TestCreateURLConfigurationDuplicateName(t *testing.T) {
	h, _ := newConfigHandler(t)

	input := &CreateURLConfigurationInput{}
	input.Body.Name = "binance-spot"
	input.Body.URL = "https://binance.com"

	if _, err := h.CreateURLConfiguration(context.Background(), input); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := h.CreateURLConfiguration(context.Background(), input)
	ae := asAPIError(t, err)
	if ae.Status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", ae.Status)
	}
	if ae.ErrorCode != "Duplicate" {
		t.Errorf("expected error_code Duplicate, got %q", ae.ErrorCode)
	}
}

func TestCreateURLConfigurationInvalidPriority(t *testing.T) {
	h, _ := newConfigHandler(t)

	input := &CreateURLConfigurationInput{}
	input.Body.Name = "bad-priority"
	input.Body.URL = "https://example.com"
	input.Body.BusinessPriority = 11

	_, err := h.CreateURLConfiguration(context.Background(), input)
	ae := asAPIError(t, err)
	if ae.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", ae.Status)
	}
	if ae.ErrorCode != "Validation" {
		t.Errorf("expected error_code Validation, got %q", ae.ErrorCode)
	}
}

// ============================================================================
// Get / update / delete
// ============================================================================

func TestGetURLConfiguration(t *testing.T) {
	h, repos := newConfigHandler(t)
	seeded := seedConfiguration(t, repos, "coindesk")

	output, err := h.GetURLConfiguration(context.Background(), &GetURLConfigurationInput{ID: seeded.ID})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body.Name != "coindesk" {
		t.Errorf("expected name 'coindesk', got %q", output.Body.Name)
	}
}

func TestGetURLConfigurationNotFound(t *testing.T) {
	h, _ := newConfigHandler(t)

	_, err := h.GetURLConfiguration(context.Background(), &GetURLConfigurationInput{ID: "nonexistent"})
	ae := asAPIError(t, err)
	if ae.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", ae.Status)
	}
	if ae.ErrorCode != "NotFound" {
		t.Errorf("expected error_code NotFound, got %q", ae.ErrorCode)
	}
}

func TestUpdateURLConfiguration(t *testing.T) {
	h, repos := newConfigHandler(t)
	seeded := seedConfiguration(t, repos, "coindesk")

	name := "coindesk-markets"
	priority := 9
	input := &UpdateURLConfigurationInput{ID: seeded.ID}
	input.Body.Name = &name
	input.Body.BusinessPriority = &priority

	output, err := h.UpdateURLConfiguration(context.Background(), input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body.Name != "coindesk-markets" {
		t.Errorf("expected updated name, got %q", output.Body.Name)
	}
	if output.Body.BusinessPriority != 9 {
		t.Errorf("expected updated priority, got %d", output.Body.BusinessPriority)
	}
	if output.Body.URL != seeded.URL {
		t.Errorf("expected untouched URL, got %q", output.Body.URL)
	}
}

func TestUpdateURLConfigurationNotFound(t *testing.T) {
	h, _ := newConfigHandler(t)

	name := "renamed"
	input := &UpdateURLConfigurationInput{ID: "nonexistent"}
	input.Body.Name = &name

	_, err := h.UpdateURLConfiguration(context.Background(), input)
	ae := asAPIError(t, err)
	if ae.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", ae.Status)
	}
}

func TestUpdateURLConfigurationInvalid(t *testing.T) {
	h, repos := newConfigHandler(t)
	seeded := seedConfiguration(t, repos, "coindesk")

	empty := "  "
	input := &UpdateURLConfigurationInput{ID: seeded.ID}
	input.Body.Name = &empty

	_, err := h.UpdateURLConfiguration(context.Background(), input)
	ae := asAPIError(t, err)
	if ae.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", ae.Status)
	}
}

func TestDeleteURLConfiguration(t *testing.T) {
	h, repos := newConfigHandler(t)
	seeded := seedConfiguration(t, repos, "coindesk")

	if _, err := h.DeleteURLConfiguration(context.Background(), &DeleteURLConfigurationInput{ID: seeded.ID}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := h.GetURLConfiguration(context.Background(), &GetURLConfigurationInput{ID: seeded.ID})
	if ae := asAPIError(t, err); ae.Status != http.StatusNotFound {
		t.Errorf("expected deleted configuration to be gone, got status %d", ae.Status)
	}
}

func TestDeleteURLConfigurationNotFound(t *testing.T) {
	h, _ := newConfigHandler(t)

	_, err := h.DeleteURLConfiguration(context.Background(), &DeleteURLConfigurationInput{ID: "nonexistent"})
	ae := asAPIError(t, err)
	if ae.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", ae.Status)
	}
}

// ============================================================================
// List / search / stats
// ============================================================================

func TestListURLConfigurations(t *testing.T) {
	h, repos := newConfigHandler(t)
	seedConfiguration(t, repos, "alpha")
	seedConfiguration(t, repos, "beta")

	output, err := h.ListURLConfigurations(context.Background(), &ListURLConfigurationsInput{Limit: 100, SortOrder: "desc"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(output.Body) != 2 {
		t.Errorf("expected 2 configurations, got %d", len(output.Body))
	}
}

func TestListURLConfigurationsEmpty(t *testing.T) {
	h, _ := newConfigHandler(t)

	output, err := h.ListURLConfigurations(context.Background(), &ListURLConfigurationsInput{Limit: 100})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(output.Body) != 0 {
		t.Errorf("expected no configurations, got %d", len(output.Body))
	}
}

func TestListURLConfigurationsActiveOnly(t *testing.T) {
	h, repos := newConfigHandler(t)
	seedConfiguration(t, repos, "active-one")
	parked := seedConfiguration(t, repos, "parked")

	active := false
	upd := &UpdateURLConfigurationInput{ID: parked.ID}
	upd.Body.IsActive = &active
	if _, err := h.UpdateURLConfiguration(context.Background(), upd); err != nil {
		t.Fatalf("failed to deactivate: %v", err)
	}

	output, err := h.ListURLConfigurations(context.Background(), &ListURLConfigurationsInput{ActiveOnly: true, Limit: 100})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(output.Body) != 1 || output.Body[0].Name != "active-one" {
		t.Errorf("expected only the active configuration, got %d results", len(output.Body))
	}
}

func TestSearchURLConfigurations(t *testing.T) {
	h, repos := newConfigHandler(t)
	seedConfiguration(t, repos, "binance-spot")
	seedConfiguration(t, repos, "coindesk-news")

	output, err := h.SearchURLConfigurations(context.Background(), &SearchURLConfigurationsInput{Query: "binance", Limit: 20})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(output.Body) != 1 || output.Body[0].Name != "binance-spot" {
		t.Errorf("expected the binance configuration, got %d results", len(output.Body))
	}
}

func TestSearchURLConfigurationsNoMatch(t *testing.T) {
	h, _ := newConfigHandler(t)

	output, err := h.SearchURLConfigurations(context.Background(), &SearchURLConfigurationsInput{Query: "nothing", Limit: 20})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestURLConfigurationStats(t *testing.T) {
	h, repos := newConfigHandler(t)
	seedConfiguration(t, repos, "alpha")
	seedConfiguration(t, repos, "beta")

	output, err := h.URLConfigurationStats(context.Background(), &struct{}{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body.Total != 2 {
		t.Errorf("expected total 2, got %d", output.Body.Total)
	}
	if output.Body.Active != 2 {
		t.Errorf("expected active 2, got %d", output.Body.Active)
	}
	if output.Body.ByCategory["product"] != 2 {
		t.Errorf("expected 2 in category 'product', got %d", output.Body.ByCategory["product"])
	}
}
