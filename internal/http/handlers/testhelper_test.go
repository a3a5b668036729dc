package handlers

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/jmylchreest/harvest-api/internal/database/migrations"
	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/fetcher"
	"github.com/jmylchreest/harvest-api/internal/llm"
	"github.com/jmylchreest/harvest-api/internal/metrics"
	"github.com/jmylchreest/harvest-api/internal/models"
	"github.com/jmylchreest/harvest-api/internal/ratelimit"
	"github.com/jmylchreest/harvest-api/internal/repository"
	"github.com/jmylchreest/harvest-api/internal/service"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubClient returns a fixed completion for every request.
type stubClient struct {
	content string
}

func (c *stubClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{
		Content:      c.content,
		FinishReason: "stop",
		Usage:        llm.Usage{InputTokens: 7, OutputTokens: 3},
		Model:        "stub-model",
	}, nil
}

func (c *stubClient) Provider() string { return "stub" }
func (c *stubClient) Model() string    { return "stub-model" }

// newTestRepos creates repositories over an in-memory database with the
// schema applied.
func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

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

	return repository.NewRepositories(db, quietLogger())
}

// newTestServices wires the service layer over fresh repositories and a
// stub LLM client returning content.
func newTestServices(t *testing.T, repos *repository.Repositories, content string) *service.Services {
	t.Helper()

	logger := quietLogger()
	client := &stubClient{content: content}
	registry := extract.NewRegistry(logger)
	factory := extract.NewFactory(registry, extract.FactoryOptions{
		Clients: func(provider string, cfg llm.Config) (llm.Client, error) {
			return client, nil
		},
		Credentials: extract.Credentials{OpenAIAPIKey: "sk-test"},
		Logger:      logger,
	})
	registry.AddLoader(extract.BuiltinLoader(factory))
	if _, err := registry.Reload(); err != nil {
		t.Fatalf("failed to load builtin strategies: %v", err)
	}

	ledger := ratelimit.NewLedger(time.Minute)
	return service.NewServices(repos, factory, ledger, metrics.New(), fetcher.New(fetcher.Config{}, logger), logger)
}

// seedConfiguration stores a minimal valid configuration.
func seedConfiguration(t *testing.T, repos *repository.Repositories, name string) *models.URLConfiguration {
	t.Helper()

	cfg := &models.URLConfiguration{
		Name:             name,
		URL:              "https://example.com/" + name,
		ProfileType:      "ecommerce",
		Category:         "product",
		BusinessPriority: 5,
		IsActive:         true,
	}
	if err := repos.URLConfigurations.Create(context.Background(), cfg); err != nil {
		t.Fatalf("failed to seed configuration: %v", err)
	}
	return cfg
}

// seedMapping stores a mapping bound to the given configuration.
func seedMapping(t *testing.T, repos *repository.Repositories, configID, url string, extractors ...string) *models.URLMapping {
	t.Helper()

	if len(extractors) == 0 {
		extractors = []string{"ProductLLM"}
	}
	mapping := &models.URLMapping{
		URLConfigID:  configID,
		URL:          url,
		ExtractorIDs: extractors,
		RateLimit:    60,
		Priority:     1,
		IsActive:     true,
	}
	if err := repos.URLMappings.Create(context.Background(), mapping); err != nil {
		t.Fatalf("failed to seed mapping: %v", err)
	}
	return mapping
}

// asAPIError asserts that err carries an *APIError and returns it.
func asAPIError(t *testing.T, err error) *APIError {
	t.Helper()

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	return ae
}
