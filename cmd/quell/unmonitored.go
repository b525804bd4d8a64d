package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quelld/quell/internal/cli"
)

func unmonitoredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unmonitored",
		Short: "Manage unmonitored apps",
		Long: `Unmonitored apps still have their notifications classified and blocked,
but their allowed notifications are not recorded in history.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unmonitored apps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			packages, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list unmonitored apps: %w", err)
			}
			if len(packages) == 0 {
				fmt.Println(cli.InfoStyle.Render("No unmonitored apps."))
				return nil
			}
			for _, pkg := range packages {
				fmt.Println(pkg)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <package>",
		Short: "Stop recording allowed notifications for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Add(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to add unmonitored app: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is now unmonitored", args[0])))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <package>",
		Short: "Resume recording allowed notifications for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Remove(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to remove unmonitored app: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is monitored again", args[0])))
			return nil
		},
	})

	return cmd
}
