package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quelld/quell/internal/cli"
	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage suppression rules",
		Long:  `List, add, delete, and toggle the allow and deny rules used to classify notifications.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(deleteRuleCmd())
	cmd.AddCommand(toggleRuleCmd("enable", true))
	cmd.AddCommand(toggleRuleCmd("disable", false))
	cmd.AddCommand(exportRulesCmd())
	cmd.AddCommand(importRulesCmd())
	cmd.AddCommand(prebuiltRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		Long:  `Display all rules in match order with their state and hit counts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			if len(ruleSet) == 0 {
				fmt.Println(cli.InfoStyle.Render("No rules yet. Use 'quell rules add' or 'quell rules prebuilt' to create some."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.BoldStyle.Render("#"),
				cli.BoldStyle.Render("Kind"),
				cli.BoldStyle.Render("Package"),
				cli.BoldStyle.Render("Title"),
				cli.BoldStyle.Render("Text"),
				cli.BoldStyle.Render("Window"),
				cli.BoldStyle.Render("State"),
				cli.BoldStyle.Render("Hits"))

			for i, rule := range ruleSet {
				state := cli.SuccessStyle.Render("on")
				if !rule.Enabled {
					state = cli.SubtleStyle.Render("off")
				}
				pkg := rule.PackageName
				if pkg == "" {
					pkg = cli.SubtleStyle.Render("(any)")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					i,
					rule.Kind,
					pkg,
					describeFilter(rule.TitleFilter, rule.TitleMatch),
					describeFilter(rule.TextFilter, rule.TextMatch),
					describeWindow(rule.Window),
					state,
					rule.HitCount)
			}

			return nil
		},
	}
}

func describeFilter(filter string, matchType model.MatchType) string {
	if filter == "" {
		return cli.SubtleStyle.Render("-")
	}
	if matchType == model.MatchRegex {
		return "/" + truncate(filter, 30) + "/"
	}
	return truncate(filter, 30)
}

func addRuleCmd() *cobra.Command {
	var (
		appName     string
		packageName string
		titleFilter string
		titleMatch  string
		textFilter  string
		textMatch   string
		kind        string
		disabled    bool
		window      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new rule",
		Long: `Append a rule to the collection. New rules match after existing ones.

A --window restricts the rule to a daily time range, for example
--window 22:00-06:00 for one spanning midnight.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rule := model.Rule{
				AppName:     appName,
				PackageName: packageName,
				TitleFilter: titleFilter,
				TitleMatch:  model.MatchType(titleMatch),
				TextFilter:  textFilter,
				TextMatch:   model.MatchType(textMatch),
				Kind:        model.RuleKind(kind),
				Enabled:     !disabled,
			}
			if window != "" {
				w, err := parseWindow(window)
				if err != nil {
					return err
				}
				rule.Window = w
			}
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			for i := range ruleSet {
				if ruleSet[i].Same(&rule) {
					return fmt.Errorf("an identical rule already exists at position %d", i)
				}
			}

			ruleSet = append(ruleSet, rule)
			if err := store.SaveRules(ctx, ruleSet); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s rule at position %d", rule.Kind, len(ruleSet)-1)))
			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "app", "", "Human-readable app name")
	cmd.Flags().StringVar(&packageName, "package", "", "Package the rule applies to (empty: any package)")
	cmd.Flags().StringVar(&titleFilter, "title", "", "Title filter")
	cmd.Flags().StringVar(&titleMatch, "title-match", "contains", "Title match type (contains, regex)")
	cmd.Flags().StringVar(&textFilter, "text", "", "Text filter")
	cmd.Flags().StringVar(&textMatch, "text-match", "contains", "Text match type (contains, regex)")
	cmd.Flags().StringVar(&kind, "kind", "deny", "Rule kind (allow, deny)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	cmd.Flags().StringVar(&window, "window", "", "Daily active window, HH:MM-HH:MM")

	return cmd
}

// parseWindow parses HH:MM-HH:MM into an enabled time window.
func parseWindow(s string) (*model.TimeWindow, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid window %q, expected HH:MM-HH:MM", s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}
	w := &model.TimeWindow{
		Enabled:     true,
		StartHour:   start / 60,
		StartMinute: start % 60,
		EndHour:     end / 60,
		EndMinute:   end % 60,
	}
	return w, w.Validate()
}

func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute %q", parts[1])
	}
	return hour*60 + minute, nil
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <position>",
		Short: "Delete a rule",
		Long:  `Remove the rule at the given position, as shown by 'quell rules list'.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			position, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule position: %w", err)
			}

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			if position < 0 || position >= len(ruleSet) {
				return fmt.Errorf("no rule at position %d", position)
			}

			ruleSet = append(ruleSet[:position], ruleSet[position+1:]...)
			if err := store.SaveRules(ctx, ruleSet); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", position)))
			return nil
		},
	}
}

func toggleRuleCmd(use string, enabled bool) *cobra.Command {
	short := "Enable a rule"
	if !enabled {
		short = "Disable a rule"
	}
	return &cobra.Command{
		Use:   use + " <position>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			position, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule position: %w", err)
			}

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			if position < 0 || position >= len(ruleSet) {
				return fmt.Errorf("no rule at position %d", position)
			}

			ruleSet[position].Enabled = enabled
			if err := store.SaveRules(ctx, ruleSet); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d %sd", position, use)))
			return nil
		},
	}
}

func exportRulesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rules as JSON",
		Long:  `Write the rule collection as a JSON array, to stdout or to a file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			data, err := model.EncodeRules(ruleSet)
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(output, append(data, '\n'), 0600); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d rules to %s", len(ruleSet), output)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func importRulesCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import rules from JSON",
		Long: `Merge rules from a JSON export into the collection. Rules identical to
an existing one are skipped. Legacy exports using ALLOWLIST/DENYLIST or
WHITELIST/BLACKLIST kinds are accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			incoming, err := model.DecodeRules(data)
			if err != nil {
				return err
			}
			for i := range incoming {
				if err := incoming[i].Validate(); err != nil {
					return fmt.Errorf("invalid rule %d in import: %w", i, err)
				}
			}

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var merged []model.Rule
			added := len(incoming)
			if replace {
				merged = incoming
			} else {
				existing, err := store.GetRules(ctx)
				if err != nil {
					return fmt.Errorf("failed to get rules: %w", err)
				}
				merged, added = rules.Merge(existing, incoming)
			}

			if err := store.SaveRules(ctx, merged); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d rules (%d skipped as duplicates)", added, len(incoming)-added)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the collection instead of merging")
	return cmd
}

func prebuiltRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prebuilt",
		Short: "Install the prebuilt rule catalog",
		Long: `Merge the shipped catalog of common spam and marketing rules into the
collection. Prebuilt rules install disabled; enable the ones you want.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalog, err := rules.Prebuilt()
			if err != nil {
				return err
			}

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			merged, added := rules.Merge(existing, catalog)
			if added == 0 {
				fmt.Println(cli.InfoStyle.Render("Prebuilt catalog already installed."))
				return nil
			}
			if err := store.SaveRules(ctx, merged); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Installed %d prebuilt rules (disabled)", added)))
			return nil
		},
	}
}
