// Package migrations applies versioned schema changes exactly once.
//
// Each change lives in its own file named YYYYMMDD-HHmmss-description.go and
// registers itself from init(). Applied versions are recorded in the
// schema_migrations table, so Run is safe to call on every startup.
package migrations

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Migration is one schema change. The timestamp doubles as the version and
// orders the run.
type Migration struct {
	Timestamp   string // YYYYMMDD-HHmmss
	Description string
	Statements  []string
}

// AppliedMigration is one row of the schema_migrations ledger.
type AppliedMigration struct {
	Timestamp   string
	Description string
	AppliedAt   time.Time
}

var all []Migration

// Register adds a migration. Called from init() in the per-change files.
func Register(m Migration) {
	all = append(all, m)
}

// Run applies every pending migration in timestamp order.
func Run(db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureLedger(db); err != nil {
		return err
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}

	for _, m := range ordered(all) {
		if applied[m.Timestamp] {
			continue
		}
		logger.Info("applying migration", "version", m.Timestamp, "description", m.Description)
		if err := apply(db, m); err != nil {
			return fmt.Errorf("migration %s (%s): %w", m.Timestamp, m.Description, err)
		}
	}
	return nil
}

// GetAppliedMigrations returns the ledger in version order.
func GetAppliedMigrations(db *sql.DB) ([]AppliedMigration, error) {
	rows, err := db.Query("SELECT version, description, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		var at string
		if err := rows.Scan(&m.Timestamp, &m.Description, &at); err != nil {
			return nil, err
		}
		m.AppliedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetPendingMigrations returns registered migrations not yet applied.
func GetPendingMigrations(db *sql.DB) ([]Migration, error) {
	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range all {
		if !applied[m.Timestamp] {
			pending = append(pending, m)
		}
	}
	return ordered(pending), nil
}

func ensureLedger(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func ordered(ms []Migration) []Migration {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Timestamp < ms[j].Timestamp })
	return ms
}

// apply runs one migration in a transaction and records it in the ledger.
func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			if canIgnore(err, stmt) {
				continue
			}
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		m.Timestamp, m.Description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// canIgnore reports whether a statement failure means the change is already
// in place. Keeps ALTER TABLE ADD COLUMN and CREATE INDEX rerunnable against
// databases that predate the ledger.
func canIgnore(err error, stmt string) bool {
	msg := err.Error()
	if strings.Contains(msg, "duplicate column") {
		return true
	}
	return strings.Contains(msg, "already exists") && strings.Contains(stmt, "CREATE INDEX")
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
