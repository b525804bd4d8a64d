package storage

import (
	"context"
	"fmt"
)

// Contains reports whether the package is on the unmonitored list.
func (s *SQLiteStorage) Contains(ctx context.Context, packageName string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(packageName, "packageName"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM unmonitored_apps WHERE package_name = ?", packageName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check unmonitored app: %w", err)
	}
	return count > 0, nil
}

// Add puts the package on the unmonitored list. Adding an already-listed
// package is a no-op.
func (s *SQLiteStorage) Add(ctx context.Context, packageName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(packageName, "packageName"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO unmonitored_apps (package_name) VALUES (?)", packageName)
	if err != nil {
		return fmt.Errorf("failed to add unmonitored app: %w", err)
	}
	return nil
}

// Remove takes the package off the unmonitored list.
func (s *SQLiteStorage) Remove(ctx context.Context, packageName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(packageName, "packageName"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM unmonitored_apps WHERE package_name = ?", packageName)
	if err != nil {
		return fmt.Errorf("failed to remove unmonitored app: %w", err)
	}
	return nil
}

// List returns the unmonitored packages in lexical order.
func (s *SQLiteStorage) List(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT package_name FROM unmonitored_apps ORDER BY package_name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list unmonitored apps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var packages []string
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, fmt.Errorf("failed to scan unmonitored app: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unmonitored apps: %w", err)
	}

	return packages, nil
}
