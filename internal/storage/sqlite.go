// Package storage provides the SQLite persistence layer for quell.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the store contracts using a single SQLite
// database file.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the database at dbPath and applies migrations.
// A corrupted database file is discarded and recreated empty; losing
// local history beats refusing to start.
func Open(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s, err := open(dbPath)
	if err == nil {
		return s, nil
	}
	if !isCorrupt(err) {
		return nil, err
	}

	slog.Error("database is corrupted, resetting to empty", "path", dbPath, "error", err)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if rmErr := os.Remove(dbPath + suffix); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("failed to remove corrupted database: %w", rmErr)
		}
	}
	return open(dbPath)
}

func open(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// isCorrupt reports whether err indicates an unreadable database file
// rather than an ordinary I/O problem.
func isCorrupt(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}
