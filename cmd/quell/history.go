package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quelld/quell/internal/cli"
	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the allowed-notification history",
	}
	cmd.AddCommand(historyListCmd(storage.LogAllowed))
	cmd.AddCommand(historyClearCmd(storage.LogAllowed))
	return cmd
}

func blockedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "Manage the blocked-notification history",
	}
	cmd.AddCommand(historyListCmd(storage.LogBlocked))
	cmd.AddCommand(historyClearCmd(storage.LogBlocked))
	return cmd
}

// historyLog picks the right log instance for a command.
func historyLog(store *storage.SQLiteStorage, log string) *storage.HistoryLog {
	if log == storage.LogBlocked {
		return store.BlockedHistory(0)
	}
	return store.AllowedHistory(0)
}

func historyListCmd(log string) *cobra.Command {
	var packageFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s notifications, most recent first", log),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := historyLog(store, log).GetHistory(ctx)
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}
			if packageFilter != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if e.PackageName == packageFilter {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if len(entries) == 0 {
				fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("No %s notifications recorded.", log)))
				return nil
			}

			printHistoryTable(entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&packageFilter, "package", "", "Only show entries for this package")
	return cmd
}

func printHistoryTable(entries []model.Notification) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.BoldStyle.Render("When"),
		cli.BoldStyle.Render("App"),
		cli.BoldStyle.Render("Title"),
		cli.BoldStyle.Render("Text"))

	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			formatTimestamp(e.Timestamp),
			truncate(e.Label(), 24),
			truncate(e.Title, 32),
			truncate(e.Text, 48))
	}
}

func historyClearCmd(log string) *cobra.Command {
	var packageName string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: fmt.Sprintf("Clear the %s history", log),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			h := historyLog(store, log)
			if packageName != "" {
				if err := h.DeleteAllForPackage(ctx, packageName); err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cleared %s history for %s", log, packageName)))
				return nil
			}

			if err := h.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cleared %s history", log)))
			return nil
		},
	}

	cmd.Flags().StringVar(&packageName, "package", "", "Only clear entries for this package")
	return cmd
}
