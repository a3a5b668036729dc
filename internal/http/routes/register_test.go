package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/jmylchreest/harvest-api/internal/database/migrations"
	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/fetcher"
	"github.com/jmylchreest/harvest-api/internal/http/handlers"
	"github.com/jmylchreest/harvest-api/internal/llm"
	"github.com/jmylchreest/harvest-api/internal/metrics"
	"github.com/jmylchreest/harvest-api/internal/ratelimit"
	"github.com/jmylchreest/harvest-api/internal/repository"
	"github.com/jmylchreest/harvest-api/internal/service"
)

// stubClient answers every completion with fixed content.
type stubClient struct {
	content string
}

func (c *stubClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: c.content, FinishReason: "stop", Model: "stub-model"}, nil
}

func (c *stubClient) Provider() string { return "stub" }
func (c *stubClient) Model() string    { return "stub-model" }

// newTestRouter wires the full HTTP surface over an in-memory database and
// a stub LLM client, the way the server binary does.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repos := repository.NewRepositories(db, logger)
	registry := extract.NewRegistry(logger)
	factory := extract.NewFactory(registry, extract.FactoryOptions{
		Clients: func(provider string, cfg llm.Config) (llm.Client, error) {
			return &stubClient{content: `{"title":"ok"}`}, nil
		},
		Credentials: extract.Credentials{OpenAIAPIKey: "sk-test"},
		Logger:      logger,
	})
	registry.AddLoader(extract.BuiltinLoader(factory))
	if _, err := registry.Reload(); err != nil {
		t.Fatalf("failed to load builtin strategies: %v", err)
	}
	services := service.NewServices(repos, factory, ratelimit.NewLedger(time.Minute),
		metrics.New(), fetcher.New(fetcher.Config{}, logger), logger)

	router := chi.NewMux()
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)
	api := humachi.New(router, NewHumaConfig(""))
	Register(api, &Handlers{
		HealthCheck:       handlers.NewHealthHandler(db).HealthCheck,
		Livez:             handlers.Livez,
		Readyz:            handlers.NewReadyzHandler(db).Readyz,
		Extractors:        handlers.NewExtractorHandler(services.Extractors),
		TestURL:           handlers.NewTestURLHandler(services.TestURL),
		URLConfigurations: handlers.NewURLConfigurationHandler(repos.URLConfigurations, logger),
		URLMappings:       handlers.NewURLMappingHandler(repos.URLMappings, repos.URLConfigurations, logger),
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// ============================================================================
// Health and probes
// ============================================================================

func TestHealthRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeBody(t, rec, &body)
	if body.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", body.Status)
	}
	if body.Version == "" {
		t.Error("expected version to be set")
	}
}

func TestProbeRoutes(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

// ============================================================================
// Error body shape
// ============================================================================

func TestUnknownRouteErrorBody(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/nonexistent", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
		Timestamp int64  `json:"timestamp"`
	}
	decodeBody(t, rec, &body)
	if body.Detail == "" {
		t.Error("expected detail to be set")
	}
	if body.ErrorCode != "NotFound" {
		t.Errorf("expected error_code NotFound, got %q", body.ErrorCode)
	}
	if body.Timestamp == 0 {
		t.Error("expected timestamp to be set")
	}
}

func TestValidationErrorBody(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url-configurations", map[string]any{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
	}
	decodeBody(t, rec, &body)
	if body.ErrorCode != "Validation" {
		t.Errorf("expected error_code Validation, got %q", body.ErrorCode)
	}
}

// ============================================================================
// CRUD round trip
// ============================================================================

func TestURLConfigurationRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url-configurations", map[string]any{
		"name": "binance-spot",
		"url":  "https://binance.com/en/markets",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID               string `json:"id"`
		BusinessPriority int    `json:"business_priority"`
		IsActive         bool   `json:"is_active"`
	}
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}
	if created.BusinessPriority != 5 {
		t.Errorf("expected default business_priority 5, got %d", created.BusinessPriority)
	}
	if !created.IsActive {
		t.Error("expected configuration to default to active")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/url-configurations/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/url-configurations?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []map[string]any
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 configuration, got %d", len(list))
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/url-configurations/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/url-configurations/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestStaticSegmentsWinOverID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/url-configurations/search?q=anything", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected search to route, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/url-configurations/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected stats to route, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/url-mappings/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected mapping stats to route, got %d: %s", rec.Code, rec.Body.String())
	}
}

// ============================================================================
// Extractors
// ============================================================================

func TestExtractorRoutes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/extractors", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []struct {
		ID     string         `json:"id"`
		Schema map[string]any `json:"schema"`
	}
	decodeBody(t, rec, &list)
	if len(list) == 0 {
		t.Fatal("expected registered extractors")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/extractors/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reload struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &reload)
	if reload.Count != len(list) {
		t.Errorf("expected reload count %d, got %d", len(list), reload.Count)
	}
}

// ============================================================================
// Test extraction
// ============================================================================

func TestTestURLRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/test-url", map[string]any{
		"url":          "https://example.com/article",
		"content":      "A page about something.",
		"extractor_id": "GeneralLLM",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success       bool           `json:"success"`
		ExtractorUsed string         `json:"extractor_used"`
		Result        map[string]any `json:"extraction_result"`
	}
	decodeBody(t, rec, &body)
	if !body.Success {
		t.Fatalf("expected success, body = %s", rec.Body.String())
	}
	if body.ExtractorUsed != "GeneralLLM" {
		t.Errorf("expected extractor_used GeneralLLM, got %q", body.ExtractorUsed)
	}
	if body.Result["title"] != "ok" {
		t.Errorf("unexpected extraction_result: %v", body.Result)
	}
}

// ============================================================================
// Bulk status limits
// ============================================================================

func TestBulkStatusRouteLimit(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPatch, "/api/url-mappings/bulk-status", map[string]any{
		"mapping_ids": []string{},
		"is_active":   true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	decodeBody(t, rec, &body)
	if body.ErrorCode != "Validation" {
		t.Errorf("expected error_code Validation, got %q", body.ErrorCode)
	}
}
