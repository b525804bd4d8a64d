package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quelld/quell/internal/cli"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show suppression statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			total, err := store.BlockedTotal(ctx)
			if err != nil {
				return fmt.Errorf("failed to get blocked total: %w", err)
			}
			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			enabled := 0
			var hits int64
			for _, rule := range ruleSet {
				if rule.Enabled {
					enabled++
				}
				hits += int64(rule.HitCount)
			}

			fmt.Println(cli.FormatTitle("quell statistics"))
			fmt.Printf("Notifications blocked: %s\n", cli.BoldStyle.Render(fmt.Sprintf("%d", total)))
			fmt.Printf("Rules: %d (%d enabled)\n", len(ruleSet), enabled)
			fmt.Printf("Total rule hits: %d\n", hits)
			return nil
		},
	}
}
