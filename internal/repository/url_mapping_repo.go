package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/models"
)

// SQLiteURLMappingRepository implements URLMappingRepository for SQLite/libsql.
type SQLiteURLMappingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteURLMappingRepository creates a new SQLite url_mapping repository.
func NewSQLiteURLMappingRepository(db *sql.DB, logger *slog.Logger) *SQLiteURLMappingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteURLMappingRepository{db: db, logger: logger}
}

const urlMappingColumns = `id, url_config_id, url, extractor_ids, rate_limit, priority,
	crawler_settings, validation_rules, metadata, is_active, tags, notes, category,
	created_at, updated_at`

// Create inserts a new mapping, assigning an ID and timestamps. Zero
// rate_limit and priority fall back to their defaults.
func (r *SQLiteURLMappingRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	now := time.Now().UTC()
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.RateLimit == 0 {
		mapping.RateLimit = constants.DefaultRateLimit
	}
	if mapping.Priority == 0 {
		mapping.Priority = 1
	}
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO url_mappings (`+urlMappingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		mapping.ID,
		mapping.URLConfigID,
		mapping.URL,
		marshalJSON(mapping.ExtractorIDs),
		mapping.RateLimit,
		mapping.Priority,
		marshalJSON(mapping.CrawlerSettings),
		marshalJSON(mapping.ValidationRules),
		marshalJSON(mapping.Metadata),
		boolToInt(mapping.IsActive),
		marshalJSON(mapping.Tags),
		mapping.Notes,
		mapping.Category,
		now.Format(timestampFormat),
		now.Format(timestampFormat),
	)
	return err
}

// GetByID retrieves a mapping by ID. Returns (nil, nil) when not found.
func (r *SQLiteURLMappingRepository) GetByID(ctx context.Context, id string) (*models.URLMapping, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+urlMappingColumns+`
		FROM url_mappings
		WHERE id = ?
	`, id)

	return r.scanMapping(row)
}

// GetAll returns mappings ordered by updated_at.
func (r *SQLiteURLMappingRepository) GetAll(ctx context.Context, opts ListOptions) ([]*models.URLMapping, error) {
	query := `SELECT ` + urlMappingColumns + ` FROM url_mappings`
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

	return r.scanMappings(rows)
}

// Update applies a partial update and bumps updated_at.
func (r *SQLiteURLMappingRepository) Update(ctx context.Context, id string, upd models.URLMappingUpdate) (bool, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if upd.URL != nil {
		set("url", *upd.URL)
	}
	if upd.ExtractorIDs != nil {
		set("extractor_ids", marshalJSON(*upd.ExtractorIDs))
	}
	if upd.RateLimit != nil {
		set("rate_limit", *upd.RateLimit)
	}
	if upd.Priority != nil {
		set("priority", *upd.Priority)
	}
	if upd.CrawlerSettings != nil {
		set("crawler_settings", marshalJSON(*upd.CrawlerSettings))
	}
	if upd.ValidationRules != nil {
		set("validation_rules", marshalJSON(*upd.ValidationRules))
	}
	if upd.Metadata != nil {
		set("metadata", marshalJSON(*upd.Metadata))
	}
	if upd.IsActive != nil {
		set("is_active", boolToInt(*upd.IsActive))
	}
	if upd.Tags != nil {
		set("tags", marshalJSON(*upd.Tags))
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}

	// updated_at is always bumped, even for an otherwise empty update.
	set("updated_at", time.Now().UTC().Format(timestampFormat))

	query := `UPDATE url_mappings SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a mapping. Returns false when nothing was deleted.
func (r *SQLiteURLMappingRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM url_mappings WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Search matches query case-insensitively against the mapping's text fields.
// Tags and extractor IDs are matched against their JSON encoding.
func (r *SQLiteURLMappingRepository) Search(ctx context.Context, query string, limit int) ([]*models.URLMapping, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	columns := []string{"url", "notes", "category", "tags", "extractor_ids"}

	var conditions []string
	var args []any
	for _, col := range columns {
		conditions = append(conditions, "LOWER("+col+") LIKE ?")
		args = append(args, pattern)
	}

	sqlQuery := `SELECT ` + urlMappingColumns + `
		FROM url_mappings
		WHERE ` + strings.Join(conditions, " OR ") + `
		ORDER BY updated_at DESC
		LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMappings(rows)
}

// Stats returns aggregate counts over the mapping store.
func (r *SQLiteURLMappingRepository) Stats(ctx context.Context) (*models.URLMappingStats, error) {
	stats := &models.URLMappingStats{
		ByCategory:  make(map[string]int),
		ByExtractor: make(map[string]int),
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM url_mappings
	`)
	if err := row.Scan(&stats.Total, &stats.Active); err != nil {
		return nil, err
	}

	if err := groupCount(ctx, r.db, "url_mappings", "category", stats.ByCategory); err != nil {
		return nil, err
	}

	// Extractor IDs live inside a JSON array column, so this is counted in
	// Go rather than SQL.
	rows, err := r.db.QueryContext(ctx, `SELECT id, extractor_ids FROM url_mappings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var raw sql.NullString
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		for _, extractorID := range decodeStringList(r.logger, "url_mappings", "extractor_ids", id, raw) {
			stats.ByExtractor[extractorID]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetByURL returns active mappings matching the URL exactly, ignoring case.
// Ordered by priority, then creation time, newest first.
func (r *SQLiteURLMappingRepository) GetByURL(ctx context.Context, url string) ([]*models.URLMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+urlMappingColumns+`
		FROM url_mappings
		WHERE is_active = 1 AND LOWER(url) = LOWER(?)
		ORDER BY priority DESC, created_at DESC
	`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMappings(rows)
}

// GetByExtractor returns mappings referencing the given extractor ID.
func (r *SQLiteURLMappingRepository) GetByExtractor(ctx context.Context, extractorID string) ([]*models.URLMapping, error) {
	// extractor_ids holds a JSON array, so match the quoted element. A full
	// scan is acceptable at this table's size.
	pattern := `%"` + extractorID + `"%`

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+urlMappingColumns+`
		FROM url_mappings
		WHERE extractor_ids LIKE ?
		ORDER BY updated_at DESC
	`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMappings(rows)
}

// GetByURLConfig returns mappings belonging to a configuration.
func (r *SQLiteURLMappingRepository) GetByURLConfig(ctx context.Context, urlConfigID string) ([]*models.URLMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+urlMappingColumns+`
		FROM url_mappings
		WHERE url_config_id = ?
		ORDER BY updated_at DESC
	`, urlConfigID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMappings(rows)
}

// BulkSetActive flips is_active for the given IDs. Returns how many rows
// changed.
func (r *SQLiteURLMappingRepository) BulkSetActive(ctx context.Context, ids []string, active bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, boolToInt(active), time.Now().UTC().Format(timestampFormat))
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE url_mappings SET is_active = ?, updated_at = ?
		WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

// scanMapping scans a single row into a URLMapping.
func (r *SQLiteURLMappingRepository) scanMapping(row *sql.Row) (*models.URLMapping, error) {
	mapping, err := scanMappingFrom(row.Scan, r.logger)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// scanMappings scans multiple rows into a URLMapping slice.
func (r *SQLiteURLMappingRepository) scanMappings(rows *sql.Rows) ([]*models.URLMapping, error) {
	var mappings []*models.URLMapping

	for rows.Next() {
		mapping, err := scanMappingFrom(rows.Scan, r.logger)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}

	return mappings, rows.Err()
}

// scanMappingFrom scans one mapping using the given scan func.
func scanMappingFrom(scan func(dest ...any) error, logger *slog.Logger) (*models.URLMapping, error) {
	var mapping models.URLMapping
	var extractorIDs, crawlerSettings, validationRules, metadata, tags sql.NullString
	var notes, category sql.NullString
	var isActive int
	var createdAt, updatedAt string

	err := scan(
		&mapping.ID,
		&mapping.URLConfigID,
		&mapping.URL,
		&extractorIDs,
		&mapping.RateLimit,
		&mapping.Priority,
		&crawlerSettings,
		&validationRules,
		&metadata,
		&isActive,
		&tags,
		&notes,
		&category,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	mapping.IsActive = isActive != 0
	mapping.Notes = notes.String
	mapping.Category = category.String

	mapping.ExtractorIDs = decodeStringList(logger, "url_mappings", "extractor_ids", mapping.ID, extractorIDs)
	mapping.CrawlerSettings = decodeMap(logger, "url_mappings", "crawler_settings", mapping.ID, crawlerSettings)
	mapping.ValidationRules = decodeMap(logger, "url_mappings", "validation_rules", mapping.ID, validationRules)
	mapping.Metadata = decodeMap(logger, "url_mappings", "metadata", mapping.ID, metadata)
	mapping.Tags = decodeStringList(logger, "url_mappings", "tags", mapping.ID, tags)

	mapping.CreatedAt = parseTimestamp(createdAt)
	mapping.UpdatedAt = parseTimestamp(updatedAt)

	return &mapping, nil
}
