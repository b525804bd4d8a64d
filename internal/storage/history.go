package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quelld/quell/internal/model"
)

// Log names for the two history instances.
const (
	LogAllowed = "allowed"
	LogBlocked = "blocked"
)

// Default pruning bounds, matching the shipped defaults: blocked history
// is capacity-bounded, allowed history is age-bounded.
const (
	DefaultBlockedMaxEntries = 100
	DefaultAllowedMaxAge     = 5 * 24 * time.Hour
)

// HistoryLog is one notification log (allowed or blocked) stored in the
// shared history table. Entries are deduplicated by content tuple and
// pruned on every write.
type HistoryLog struct {
	storage    *SQLiteStorage
	log        string
	maxEntries int           // 0 = unbounded
	maxAge     time.Duration // 0 = no age limit
}

// AllowedHistory returns the allowed-notification log with the given
// retention. A zero maxAge falls back to DefaultAllowedMaxAge.
func (s *SQLiteStorage) AllowedHistory(maxAge time.Duration) *HistoryLog {
	if maxAge <= 0 {
		maxAge = DefaultAllowedMaxAge
	}
	return &HistoryLog{storage: s, log: LogAllowed, maxAge: maxAge}
}

// BlockedHistory returns the blocked-notification log with the given
// capacity. A zero maxEntries falls back to DefaultBlockedMaxEntries.
func (s *SQLiteStorage) BlockedHistory(maxEntries int) *HistoryLog {
	if maxEntries <= 0 {
		maxEntries = DefaultBlockedMaxEntries
	}
	return &HistoryLog{storage: s, log: LogBlocked, maxEntries: maxEntries}
}

// GetHistory returns the log's entries, most recent first.
func (h *HistoryLog) GetHistory(ctx context.Context) ([]model.Notification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT app_label, package_name, title, text, timestamp, was_ongoing
		FROM history
		WHERE log = ?
		ORDER BY timestamp DESC, id DESC
	`

	rows, err := h.storage.db.QueryContext(ctx, query, h.log)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s history: %w", h.log, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.AppLabel, &n.PackageName, &n.Title, &n.Text, &n.Timestamp, &n.WasOngoing); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// SaveNotification records the event at the front of the log. A
// content-identical entry (same app label, package, title, and text,
// ignoring timestamp) is removed first, so a repeat refreshes the entry
// instead of duplicating it. Returns whether the entry was genuinely new.
func (h *HistoryLog) SaveNotification(ctx context.Context, n *model.Notification) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateNotification(n); err != nil {
		return false, err
	}

	tx, err := h.storage.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE log = ? AND app_label = ? AND package_name = ? AND title = ? AND text = ?
	`, h.log, n.AppLabel, n.PackageName, n.Title, n.Text)
	if err != nil {
		return false, fmt.Errorf("failed to dedup history entry: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	isNew := removed == 0

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (log, app_label, package_name, title, text, timestamp, was_ongoing)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.log, n.AppLabel, n.PackageName, n.Title, n.Text, n.Timestamp, n.WasOngoing)
	if err != nil {
		return false, fmt.Errorf("failed to insert history entry: %w", err)
	}

	if err := h.pruneTx(ctx, tx); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit history entry: %w", err)
	}
	return isNew, nil
}

// pruneTx applies the log's capacity and age bounds inside a write
// transaction.
func (h *HistoryLog) pruneTx(ctx context.Context, tx *sql.Tx) error {
	if h.maxEntries > 0 {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM history
			WHERE log = ? AND id NOT IN (
				SELECT id FROM history
				WHERE log = ?
				ORDER BY timestamp DESC, id DESC
				LIMIT ?
			)
		`, h.log, h.log, h.maxEntries)
		if err != nil {
			return fmt.Errorf("failed to prune %s history by capacity: %w", h.log, err)
		}
	}

	if h.maxAge > 0 {
		cutoff := time.Now().Add(-h.maxAge).UnixMilli()
		_, err := tx.ExecContext(ctx, `
			DELETE FROM history WHERE log = ? AND timestamp < ?
		`, h.log, cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune %s history by age: %w", h.log, err)
		}
	}

	return nil
}

// DeleteNotification removes a single entry matched by content tuple and
// timestamp.
func (h *HistoryLog) DeleteNotification(ctx context.Context, n *model.Notification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNotification(n); err != nil {
		return err
	}

	_, err := h.storage.db.ExecContext(ctx, `
		DELETE FROM history
		WHERE log = ? AND app_label = ? AND package_name = ? AND title = ? AND text = ? AND timestamp = ?
	`, h.log, n.AppLabel, n.PackageName, n.Title, n.Text, n.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

// DeleteAllForPackage removes every entry recorded for a package.
func (h *HistoryLog) DeleteAllForPackage(ctx context.Context, packageName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(packageName, "packageName"); err != nil {
		return err
	}

	_, err := h.storage.db.ExecContext(ctx,
		"DELETE FROM history WHERE log = ? AND package_name = ?", h.log, packageName)
	if err != nil {
		return fmt.Errorf("failed to delete history for package: %w", err)
	}
	return nil
}

// Clear removes all entries from the log.
func (h *HistoryLog) Clear(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := h.storage.db.ExecContext(ctx, "DELETE FROM history WHERE log = ?", h.log)
	if err != nil {
		return fmt.Errorf("failed to clear %s history: %w", h.log, err)
	}
	return nil
}
