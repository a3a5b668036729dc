// Package database opens the libsql connection and applies schema migrations.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tursodatabase/go-libsql"

	"github.com/jmylchreest/harvest-api/internal/database/migrations"
)

// New opens a database for the given DSN. When TURSO_URL and
// TURSO_AUTH_TOKEN are set the local file becomes an embedded replica
// synced against the remote; otherwise the DSN is used as-is, either a
// file: URL or http: for a local libsql server.
func New(dsn string) (*sql.DB, error) {
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}

	// Mapping deletion relies on ON DELETE CASCADE from url_configurations.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func open(dsn string) (*sql.DB, error) {
	url := os.Getenv("TURSO_URL")
	token := os.Getenv("TURSO_AUTH_TOKEN")
	if url == "" || token == "" {
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}

	// Embedded replica: local file kept in sync with the remote.
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	connector, err := libsql.NewEmbeddedReplicaConnector(path, url,
		libsql.WithAuthToken(token),
		libsql.WithReadYourWrites(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create replica connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Migrate applies pending schema migrations.
func Migrate(db *sql.DB, logger *slog.Logger) error {
	return migrations.Run(db, logger)
}

// GetAppliedMigrations returns the applied-migration ledger.
func GetAppliedMigrations(db *sql.DB) ([]migrations.AppliedMigration, error) {
	return migrations.GetAppliedMigrations(db)
}
