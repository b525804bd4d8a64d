package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the application
// expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS rules (
					position INTEGER PRIMARY KEY,
					app_name TEXT NOT NULL DEFAULT '',
					package_name TEXT NOT NULL DEFAULT '',
					title_filter TEXT NOT NULL DEFAULT '',
					title_match TEXT NOT NULL DEFAULT 'contains',
					text_filter TEXT NOT NULL DEFAULT '',
					text_match TEXT NOT NULL DEFAULT 'contains',
					kind TEXT NOT NULL DEFAULT 'deny',
					enabled INTEGER NOT NULL DEFAULT 1,
					hit_count INTEGER NOT NULL DEFAULT 0,
					window_enabled INTEGER NOT NULL DEFAULT 0,
					start_hour INTEGER NOT NULL DEFAULT 0,
					start_minute INTEGER NOT NULL DEFAULT 0,
					end_hour INTEGER NOT NULL DEFAULT 0,
					end_minute INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_rules_package ON rules(package_name)`,

				`CREATE TABLE IF NOT EXISTS history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					log TEXT NOT NULL,
					app_label TEXT NOT NULL DEFAULT '',
					package_name TEXT NOT NULL,
					title TEXT NOT NULL DEFAULT '',
					text TEXT NOT NULL DEFAULT '',
					timestamp INTEGER NOT NULL,
					was_ongoing INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_history_log_time ON history(log, timestamp DESC)`,
				`CREATE INDEX idx_history_tuple ON history(log, package_name, title, text)`,

				`CREATE TABLE IF NOT EXISTS unmonitored_apps (
					package_name TEXT PRIMARY KEY
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add stats counters",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS stats (
					name TEXT PRIMARY KEY,
					value INTEGER NOT NULL DEFAULT 0
				)
			`)
			return err
		},
	},
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// migrate applies all pending schema migrations.
func (s *SQLiteStorage) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
