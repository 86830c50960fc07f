package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/zap"

	"taskapp/internal/adapter/http/routes"
	"taskapp/internal/core/telemetry"
	"taskapp/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func NewServer(container *Container, metrics *telemetry.AppMetrics, logger *config.LokiLogger, cfg *config.AppConfig) *http.Server {
	router := routes.SetupRouterWithConfig(container.Handlers(), metrics, logger, cfg)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// StartServer serves until ctx is cancelled, then drains in-flight
// requests before returning.
func StartServer(ctx context.Context, srv *http.Server, logger *config.LokiLogger, cfg *config.AppConfig) error {
	slog.Info("Server starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"database_driver", cfg.DatabaseDriver,
		"rate_limit_enabled", cfg.RateLimitEnabled,
		"https_enforced", cfg.EnforceHTTPS)

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorWithTrace(ctx, "Server failed to start", zap.Error(err))
		}

		return err
	case <-ctx.Done():
	}

	logger.InfoWithTrace(context.Background(), "Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
