package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quelld/quell/internal/config"
	"github.com/quelld/quell/internal/engine"
	"github.com/quelld/quell/internal/feed"
	"github.com/quelld/quell/internal/match"
	"github.com/quelld/quell/internal/pattern"
	"github.com/quelld/quell/internal/rules"
	"github.com/quelld/quell/internal/storage"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process notification events from stdin",
		Long: `Read newline-delimited JSON notification events from stdin, classify
each against the rule collection, and emit cancel commands for blocked
notifications as newline-delimited JSON on stdout.

Runs until stdin closes or the process is interrupted.`,
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	cache, err := pattern.NewCache(cfg.PatternCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create pattern cache: %w", err)
	}

	processor := engine.NewProcessor(engine.Deps{
		Rules:       rules.NewRepository(store),
		Classifier:  match.NewClassifier(match.NewMatcher(cache)),
		Sink:        feed.NewSink(os.Stdout),
		Blocked:     store.BlockedHistory(cfg.BlockedMaxEntries),
		Allowed:     store.AllowedHistory(cfg.AllowedMaxAge),
		Unmonitored: store,
		Stats:       store,
		Observer:    engine.NewBroadcaster(),
	}, engine.Config{
		DebounceWindow: cfg.DebounceWindow,
		QueueSize:      cfg.QueueSize,
	})

	ctx := cmd.Context()
	slog.Info("quell is listening", "database", cfg.DatabasePath, "debounce", cfg.DebounceWindow)

	source := feed.NewSource(os.Stdin)
	defer source.Close()

	processor.Start(ctx)
	err = processor.Run(ctx, source)
	processor.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event processing stopped: %w", err)
	}
	slog.Info("event stream ended, shutting down")
	return nil
}
