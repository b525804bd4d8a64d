package main

import (
	"fmt"
	"time"

	"github.com/quelld/quell/internal/config"
	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/storage"
)

// initStorage opens the configured database, applying migrations.
func initStorage() (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// formatTimestamp renders an epoch-milliseconds timestamp for tables.
func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// truncate shortens s for single-line table cells.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// describeWindow renders a rule's time window, or "-" when unrestricted.
func describeWindow(w *model.TimeWindow) string {
	if w == nil || !w.Enabled {
		return "-"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
}
