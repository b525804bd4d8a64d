package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quelld/quell/internal/cli"
	"github.com/quelld/quell/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Migrations also run automatically when any command opens the database;
this command exists to apply them explicitly and report the version.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	// Open applies pending migrations.
	store, err := initStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	version, err := store.SchemaVersion()
	if err != nil {
		return err
	}

	if status {
		fmt.Printf("Database: %s\n", store.Path())
		fmt.Printf("Schema version: %d (latest: %d)\n", version, storage.ExpectedSchemaVersion)
		return nil
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database at %s is at schema version %d", store.Path(), version)))
	return nil
}
