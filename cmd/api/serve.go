package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskapp/internal/adapter/database/store"
	api "taskapp/internal/adapter/http"
	"taskapp/internal/adapter/scheduler"
	adaptertelemetry "taskapp/internal/adapter/telemetry"
	"taskapp/pkg/config"
)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()

			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	logger, err := config.NewLokiLogger(cfg.ServiceName, cfg.LokiURL)

	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	defer logger.Sync()

	telemetry, err := adaptertelemetry.NewContainer(adaptertelemetry.ConfigFrom(cfg), logger)

	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	defer telemetry.Shutdown(context.Background())

	probe := telemetry.NewTelemetryProbe(slog.Default())

	tasks, err := store.Open(ctx, cfg, store.Options{
		Telemetry:      probe,
		TracerProvider: telemetry.TracerProvider,
		Logger:         logger,
	})

	if err != nil {
		return err
	}

	defer tasks.Close()

	container := api.NewContainer(tasks.Tasks, cfg, telemetry.AppMetrics, probe, logger)

	jobs := scheduler.New(cfg.Location, logger)

	if err := jobs.ScheduleGauges(telemetry.AppMetrics, container.TaskService, telemetry.AppMetrics); err != nil {
		return fmt.Errorf("schedule gauges: %w", err)
	}

	telemetry.AppMetrics.SampleSystem()
	scheduler.RefreshTaskGauges(ctx, container.TaskService, telemetry.AppMetrics, logger)

	jobs.Start()
	defer jobs.Stop()

	srv := api.NewServer(container, telemetry.AppMetrics, logger, cfg)

	return api.StartServer(ctx, srv, logger, cfg)
}
