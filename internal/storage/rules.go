package storage

import (
	"context"
	"fmt"

	"github.com/quelld/quell/internal/model"
)

// GetRules returns all rules in insertion order.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT app_name, package_name, title_filter, title_match,
			text_filter, text_match, kind, enabled, hit_count,
			window_enabled, start_hour, start_minute, end_hour, end_minute
		FROM rules
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var rule model.Rule
		var window model.TimeWindow
		err := rows.Scan(
			&rule.AppName, &rule.PackageName, &rule.TitleFilter, &rule.TitleMatch,
			&rule.TextFilter, &rule.TextMatch, &rule.Kind, &rule.Enabled, &rule.HitCount,
			&window.Enabled, &window.StartHour, &window.StartMinute, &window.EndHour, &window.EndMinute,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if window != (model.TimeWindow{}) {
			rule.Window = &window
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// SaveRules replaces the entire rule collection in one transaction,
// preserving slice order as insertion order.
func (s *SQLiteStorage) SaveRules(ctx context.Context, rules []model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRules(rules); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rules"); err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}

	insert := `
		INSERT INTO rules (
			position, app_name, package_name, title_filter, title_match,
			text_filter, text_match, kind, enabled, hit_count,
			window_enabled, start_hour, start_minute, end_hour, end_minute
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare rule insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range rules {
		rule := &rules[i]
		window := rule.Window
		if window == nil {
			window = &model.TimeWindow{}
		}
		_, err := stmt.ExecContext(ctx,
			i, rule.AppName, rule.PackageName, rule.TitleFilter, rule.TitleMatch,
			rule.TextFilter, rule.TextMatch, rule.Kind, rule.Enabled, rule.HitCount,
			window.Enabled, window.StartHour, window.StartMinute, window.EndHour, window.EndMinute,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rule %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rules: %w", err)
	}
	return nil
}
