package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jmylchreest/harvest-api/internal/constants"
)

// timestampFormat is RFC 3339 with a fixed-width fraction. Trailing zeros
// are kept so the TEXT columns sort chronologically under SQLite's binary
// collation.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// groupCount fills dest with COUNT(*) from table grouped by column. Empty
// group keys are reported as "uncategorized".
func groupCount(ctx context.Context, db *sql.DB, table, column string, dest map[string]int) error {
	rows, err := db.QueryContext(ctx,
		`SELECT COALESCE(`+column+`, ''), COUNT(*) FROM `+table+` GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		if key == "" {
			key = "uncategorized"
		}
		dest[key] = count
	}
	return rows.Err()
}

// marshalJSON serializes a value for a JSON TEXT column. Nil values are
// stored as SQL NULL.
func marshalJSON(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	if s == "null" {
		return nil
	}
	return s
}

// decodeMap deserializes a JSON object column. Malformed JSON yields an
// empty map and a warning rather than a hard failure, so one corrupt row
// cannot poison list queries.
func decodeMap(logger *slog.Logger, table, column, id string, raw sql.NullString) map[string]any {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		logger.Warn("ignoring malformed JSON column",
			"table", table, "column", column, "id", id, "error", err)
		return map[string]any{}
	}
	return m
}

// decodeStringList deserializes a JSON string-array column with the same
// tolerance as decodeMap.
func decodeStringList(logger *slog.Logger, table, column, id string, raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw.String), &list); err != nil {
		logger.Warn("ignoring malformed JSON column",
			"table", table, "column", column, "id", id, "error", err)
		return []string{}
	}
	return list
}

// parseTimestamp parses a stored RFC3339 timestamp, tolerating both second
// and nanosecond precision.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// boolToInt converts a bool for an INTEGER column.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}

// sortDirection whitelists the ORDER BY direction.
func sortDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

// normalizeLimit clamps a pagination limit into [1, MaxPageSize].
func normalizeLimit(limit int) int {
	if limit < 1 {
		return constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return limit
}
