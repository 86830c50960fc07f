package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"taskapp/internal/adapter/database/memory"
	"taskapp/internal/adapter/database/postgres"
	pgrepo "taskapp/internal/adapter/database/postgres/repository"
	"taskapp/internal/adapter/database/sqlite"
	sqliterepo "taskapp/internal/adapter/database/sqlite/repository"
	"taskapp/internal/core/port"
	"taskapp/pkg/config"
)

type Options struct {
	Telemetry      port.Telemetry
	TracerProvider trace.TracerProvider
	Logger         *config.LokiLogger
}

// Store is an opened task store of the configured driver.
type Store struct {
	Driver string
	Tasks  port.TaskRepository

	close func()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Tasks.Ping(ctx)
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the store named by cfg.DatabaseDriver, retrying failed
// attempts with a fixed backoff. Schema migrations are applied on open.
func Open(ctx context.Context, cfg *config.AppConfig, opts Options) (*Store, error) {
	attempts := max(cfg.DBConnectRetries, 1)

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		s, err := open(ctx, cfg, opts)

		if err == nil {
			config.LogInfo(ctx, opts.Logger, "Task store ready",
				zap.String("driver", cfg.DatabaseDriver),
				zap.Int("attempt", attempt))

			return s, nil
		}

		lastErr = err

		if attempt == attempts {
			break
		}

		opts.Logger.WarnWithTrace(ctx, "Task store unavailable, retrying",
			zap.String("driver", cfg.DatabaseDriver),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", cfg.DBConnectBackoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(cfg.DBConnectBackoff):
		}
	}

	return nil, fmt.Errorf("open %s store after %d attempts: %w", cfg.DatabaseDriver, attempts, lastErr)
}

func open(ctx context.Context, cfg *config.AppConfig, opts Options) (*Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return &Store{Driver: config.DriverMemory, Tasks: memory.NewTaskRepository()}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(sqlite.Options{
			Path:           cfg.DatabasePath,
			Name:           cfg.ServiceName,
			LogSQL:         cfg.SQLLog,
			TracerProvider: opts.TracerProvider,
		})

		if err != nil {
			return nil, err
		}

		return &Store{
			Driver: config.DriverSQLite,
			Tasks:  sqliterepo.NewTaskRepository(db, opts.Telemetry),
			close:  func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)

		if err != nil {
			return nil, err
		}

		return &Store{
			Driver: config.DriverPostgres,
			Tasks:  pgrepo.NewTaskRepository(db),
			close:  db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
