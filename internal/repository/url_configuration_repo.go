package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/harvest-api/internal/models"
)

// SQLiteURLConfigurationRepository implements URLConfigurationRepository for SQLite/libsql.
type SQLiteURLConfigurationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteURLConfigurationRepository creates a new SQLite url_configuration repository.
func NewSQLiteURLConfigurationRepository(db *sql.DB, logger *slog.Logger) *SQLiteURLConfigurationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteURLConfigurationRepository{db: db, logger: logger}
}

const urlConfigurationColumns = `id, name, description, url, profile_type, category, business_priority,
	key_data_points, target_data, cost_analysis, metadata,
	scraping_difficulty, api_pricing, recommendation, rationale, business_value, compliance_notes,
	has_official_api, is_active, created_at, updated_at`

// Create inserts a new configuration, assigning an ID and timestamps.
func (r *SQLiteURLConfigurationRepository) Create(ctx context.Context, cfg *models.URLConfiguration) error {
	now := time.Now().UTC()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO url_configurations (`+urlConfigurationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cfg.ID,
		cfg.Name,
		cfg.Description,
		cfg.URL,
		cfg.ProfileType,
		cfg.Category,
		cfg.BusinessPriority,
		marshalJSON(cfg.KeyDataPoints),
		marshalJSON(cfg.TargetData),
		marshalJSON(cfg.CostAnalysis),
		marshalJSON(cfg.Metadata),
		cfg.ScrapingDifficulty,
		cfg.APIPricing,
		cfg.Recommendation,
		cfg.Rationale,
		cfg.BusinessValue,
		cfg.ComplianceNotes,
		boolToInt(cfg.HasOfficialAPI),
		boolToInt(cfg.IsActive),
		now.Format(timestampFormat),
		now.Format(timestampFormat),
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// GetByID retrieves a configuration by ID. Returns (nil, nil) when not found.
func (r *SQLiteURLConfigurationRepository) GetByID(ctx context.Context, id string) (*models.URLConfiguration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+urlConfigurationColumns+`
		FROM url_configurations
		WHERE id = ?
	`, id)

	return r.scanConfiguration(row)
}

// GetByName retrieves a configuration by its unique name.
func (r *SQLiteURLConfigurationRepository) GetByName(ctx context.Context, name string) (*models.URLConfiguration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+urlConfigurationColumns+`
		FROM url_configurations
		WHERE name = ?
	`, name)

	return r.scanConfiguration(row)
}

// GetAll returns configurations ordered by updated_at.
func (r *SQLiteURLConfigurationRepository) GetAll(ctx context.Context, opts ListOptions) ([]*models.URLConfiguration, error) {
	query := `SELECT ` + urlConfigurationColumns + ` FROM url_configurations`
	if opts.ActiveOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY updated_at ` + sortDirection(opts.SortOrder)
	query += ` LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanConfigurations(rows)
}

// Update applies a partial update and bumps updated_at.
func (r *SQLiteURLConfigurationRepository) Update(ctx context.Context, id string, upd models.URLConfigurationUpdate) (bool, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.URL != nil {
		set("url", *upd.URL)
	}
	if upd.ProfileType != nil {
		set("profile_type", *upd.ProfileType)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}
	if upd.BusinessPriority != nil {
		set("business_priority", *upd.BusinessPriority)
	}
	if upd.KeyDataPoints != nil {
		set("key_data_points", marshalJSON(*upd.KeyDataPoints))
	}
	if upd.TargetData != nil {
		set("target_data", marshalJSON(*upd.TargetData))
	}
	if upd.CostAnalysis != nil {
		set("cost_analysis", marshalJSON(*upd.CostAnalysis))
	}
	if upd.Metadata != nil {
		set("metadata", marshalJSON(*upd.Metadata))
	}
	if upd.ScrapingDifficulty != nil {
		set("scraping_difficulty", *upd.ScrapingDifficulty)
	}
	if upd.APIPricing != nil {
		set("api_pricing", *upd.APIPricing)
	}
	if upd.Recommendation != nil {
		set("recommendation", *upd.Recommendation)
	}
	if upd.Rationale != nil {
		set("rationale", *upd.Rationale)
	}
	if upd.BusinessValue != nil {
		set("business_value", *upd.BusinessValue)
	}
	if upd.ComplianceNotes != nil {
		set("compliance_notes", *upd.ComplianceNotes)
	}
	if upd.HasOfficialAPI != nil {
		set("has_official_api", boolToInt(*upd.HasOfficialAPI))
	}
	if upd.IsActive != nil {
		set("is_active", boolToInt(*upd.IsActive))
	}

	// updated_at is always bumped, even for an otherwise empty update.
	set("updated_at", time.Now().UTC().Format(timestampFormat))

	query := `UPDATE url_configurations SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateName
		}
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a configuration. Mappings referencing it are removed by
// ON DELETE CASCADE.
func (r *SQLiteURLConfigurationRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM url_configurations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Search matches query case-insensitively against the profile's text fields.
func (r *SQLiteURLConfigurationRepository) Search(ctx context.Context, query string, limit int) ([]*models.URLConfiguration, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	columns := []string{
		"name", "description", "url", "category", "profile_type",
		"recommendation", "rationale", "business_value",
	}

	var conditions []string
	var args []any
	for _, col := range columns {
		conditions = append(conditions, "LOWER("+col+") LIKE ?")
		args = append(args, pattern)
	}

	sqlQuery := `SELECT ` + urlConfigurationColumns + `
		FROM url_configurations
		WHERE ` + strings.Join(conditions, " OR ") + `
		ORDER BY updated_at DESC
		LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanConfigurations(rows)
}

// Stats returns aggregate counts over the configuration store.
func (r *SQLiteURLConfigurationRepository) Stats(ctx context.Context) (*models.URLConfigurationStats, error) {
	stats := &models.URLConfigurationStats{
		ByCategory:    make(map[string]int),
		ByProfileType: make(map[string]int),
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM url_configurations
	`)
	if err := row.Scan(&stats.Total, &stats.Active); err != nil {
		return nil, err
	}

	if err := groupCount(ctx, r.db, "url_configurations", "category", stats.ByCategory); err != nil {
		return nil, err
	}
	if err := groupCount(ctx, r.db, "url_configurations", "profile_type", stats.ByProfileType); err != nil {
		return nil, err
	}

	return stats, nil
}

// scanConfiguration scans a single row into a URLConfiguration.
func (r *SQLiteURLConfigurationRepository) scanConfiguration(row *sql.Row) (*models.URLConfiguration, error) {
	cfg, err := scanConfigurationFrom(row.Scan, r.logger)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// scanConfigurations scans multiple rows into a URLConfiguration slice.
func (r *SQLiteURLConfigurationRepository) scanConfigurations(rows *sql.Rows) ([]*models.URLConfiguration, error) {
	var configs []*models.URLConfiguration

	for rows.Next() {
		cfg, err := scanConfigurationFrom(rows.Scan, r.logger)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// scanConfigurationFrom scans one configuration using the given scan func.
func scanConfigurationFrom(scan func(dest ...any) error, logger *slog.Logger) (*models.URLConfiguration, error) {
	var cfg models.URLConfiguration
	var description, category sql.NullString
	var keyDataPoints, targetData, costAnalysis, metadata sql.NullString
	var scrapingDifficulty, apiPricing, recommendation, rationale, businessValue, complianceNotes sql.NullString
	var hasOfficialAPI, isActive int
	var createdAt, updatedAt string

	err := scan(
		&cfg.ID,
		&cfg.Name,
		&description,
		&cfg.URL,
		&cfg.ProfileType,
		&category,
		&cfg.BusinessPriority,
		&keyDataPoints,
		&targetData,
		&costAnalysis,
		&metadata,
		&scrapingDifficulty,
		&apiPricing,
		&recommendation,
		&rationale,
		&businessValue,
		&complianceNotes,
		&hasOfficialAPI,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Description = description.String
	cfg.Category = category.String
	cfg.ScrapingDifficulty = scrapingDifficulty.String
	cfg.APIPricing = apiPricing.String
	cfg.Recommendation = recommendation.String
	cfg.Rationale = rationale.String
	cfg.BusinessValue = businessValue.String
	cfg.ComplianceNotes = complianceNotes.String
	cfg.HasOfficialAPI = hasOfficialAPI != 0
	cfg.IsActive = isActive != 0

	cfg.KeyDataPoints = decodeStringList(logger, "url_configurations", "key_data_points", cfg.ID, keyDataPoints)
	cfg.TargetData = decodeMap(logger, "url_configurations", "target_data", cfg.ID, targetData)
	cfg.CostAnalysis = decodeMap(logger, "url_configurations", "cost_analysis", cfg.ID, costAnalysis)
	cfg.Metadata = decodeMap(logger, "url_configurations", "metadata", cfg.ID, metadata)

	cfg.CreatedAt = parseTimestamp(createdAt)
	cfg.UpdatedAt = parseTimestamp(updatedAt)

	return &cfg, nil
}
