package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskapp/internal/adapter/database/store"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()

			if err != nil {
				return err
			}

			if err := store.MigrateUp(cfg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")

			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert every applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()

			if err != nil {
				return err
			}

			if err := store.MigrateDown(cfg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations reverted")

			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()

			if err != nil {
				return err
			}

			version, dirty, err := store.MigrationVersion(cfg)

			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)

			return nil
		},
	})

	return migrateCmd
}
