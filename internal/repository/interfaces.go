// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmylchreest/harvest-api/internal/models"
)

// ErrDuplicateName is returned when a url_configuration name collides with
// an existing one.
var ErrDuplicateName = errors.New("a url configuration with this name already exists")

// ListOptions controls pagination and ordering for list queries.
// Results are ordered by updated_at; SortOrder is "asc" or "desc" (default).
type ListOptions struct {
	ActiveOnly bool
	Limit      int
	Offset     int
	SortOrder  string
}

// URLConfigurationRepository defines methods for url_configuration data access.
type URLConfigurationRepository interface {
	Create(ctx context.Context, cfg *models.URLConfiguration) error
	GetByID(ctx context.Context, id string) (*models.URLConfiguration, error)
	GetByName(ctx context.Context, name string) (*models.URLConfiguration, error)
	GetAll(ctx context.Context, opts ListOptions) ([]*models.URLConfiguration, error)
	// Update applies the non-nil fields of upd and bumps updated_at.
	// Returns false when no row with the given ID exists.
	Update(ctx context.Context, id string, upd models.URLConfigurationUpdate) (bool, error)
	// Delete removes the configuration and, via ON DELETE CASCADE, its
	// mappings. Returns false when nothing was deleted.
	Delete(ctx context.Context, id string) (bool, error)
	// Search matches the query case-insensitively against the profile's
	// text fields (name, description, url, category, and related notes).
	Search(ctx context.Context, query string, limit int) ([]*models.URLConfiguration, error)
	Stats(ctx context.Context) (*models.URLConfigurationStats, error)
}

// URLMappingRepository defines methods for url_mapping data access.
type URLMappingRepository interface {
	Create(ctx context.Context, mapping *models.URLMapping) error
	GetByID(ctx context.Context, id string) (*models.URLMapping, error)
	GetAll(ctx context.Context, opts ListOptions) ([]*models.URLMapping, error)
	Update(ctx context.Context, id string, upd models.URLMappingUpdate) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]*models.URLMapping, error)
	Stats(ctx context.Context) (*models.URLMappingStats, error)
	// GetByURL returns active mappings whose URL equals the given one
	// (case-insensitive), ordered by priority then creation time, newest
	// first. Used by the dispatcher to route extraction requests.
	GetByURL(ctx context.Context, url string) ([]*models.URLMapping, error)
	// GetByExtractor returns mappings that reference the given extractor ID.
	GetByExtractor(ctx context.Context, extractorID string) ([]*models.URLMapping, error)
	// GetByURLConfig returns mappings belonging to a configuration.
	GetByURLConfig(ctx context.Context, urlConfigID string) ([]*models.URLMapping, error)
	// BulkSetActive flips is_active for the given IDs and returns how many
	// rows changed.
	BulkSetActive(ctx context.Context, ids []string, active bool) (int, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	URLConfigurations URLConfigurationRepository
	URLMappings       URLMappingRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB, logger *slog.Logger) *Repositories {
	return &Repositories{
		URLConfigurations: NewSQLiteURLConfigurationRepository(db, logger),
		URLMappings:       NewSQLiteURLMappingRepository(db, logger),
	}
}
