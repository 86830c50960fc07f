package main

import (
	"context"

	"github.com/spf13/cobra"

	"taskapp/internal/adapter/database/store"
	"taskapp/internal/core/service"
	"taskapp/pkg/config"
)

type configLoader func() (*config.AppConfig, error)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "taskapp",
		Short: "Task management API",
		Long: `A task management backend: a JSON HTTP API over a SQLite, PostgreSQL
or in-memory store, plus commands to migrate the schema and move tasks
in and out as JSON or YAML snapshots.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")

	load := func() (*config.AppConfig, error) {
		return config.Load(envFile)
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newMigrateCmd(load))
	root.AddCommand(newExportCmd(load))
	root.AddCommand(newImportCmd(load))

	return root
}

// openService opens the configured store without telemetry, for the
// one-shot commands.
func openService(ctx context.Context, cfg *config.AppConfig) (*service.TaskService, *store.Store, error) {
	s, err := store.Open(ctx, cfg, store.Options{Logger: config.NewNopLogger(cfg.ServiceName)})

	if err != nil {
		return nil, nil, err
	}

	return service.NewTaskService(s.Tasks, service.WithClock(cfg.Now)), s, nil
}
