package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const statBlockedTotal = "blocked_total"

// IncrementBlocked bumps the running total of newly blocked
// notifications.
func (s *SQLiteStorage) IncrementBlocked(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stats (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
	`, statBlockedTotal)
	if err != nil {
		return fmt.Errorf("failed to increment blocked total: %w", err)
	}
	return nil
}

// BlockedTotal returns the running total of blocked notifications.
func (s *SQLiteStorage) BlockedTotal(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM stats WHERE name = ?", statBlockedTotal).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get blocked total: %w", err)
	}
	return total, nil
}
