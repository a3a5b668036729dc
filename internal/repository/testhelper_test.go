package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmylchreest/harvest-api/internal/database/migrations"
	"github.com/jmylchreest/harvest-api/internal/models"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Enable foreign keys so cascades behave like production
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db, nil)
}

// createTestConfiguration inserts a configuration through the repository and
// returns it with its generated ID and timestamps.
func createTestConfiguration(t *testing.T, repos *Repositories, name string) *models.URLConfiguration {
	t.Helper()

	cfg := &models.URLConfiguration{
		Name:             name,
		Description:      "test profile",
		URL:              "https://example.com/" + name,
		ProfileType:      "crypto_exchange",
		Category:         "crypto",
		BusinessPriority: 5,
		KeyDataPoints:    []string{"price", "volume"},
		TargetData:       map[string]any{"price": "number"},
		IsActive:         true,
	}
	if err := repos.URLConfigurations.Create(context.Background(), cfg); err != nil {
		t.Fatalf("failed to create test configuration: %v", err)
	}
	return cfg
}

// createTestMapping inserts a mapping bound to the given configuration.
func createTestMapping(t *testing.T, repos *Repositories, configID, url string, extractors ...string) *models.URLMapping {
	t.Helper()

	if len(extractors) == 0 {
		extractors = []string{"CryptoLLM"}
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
		t.Fatalf("failed to create test mapping: %v", err)
	}
	return mapping
}
