package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"taskapp/db/migrations"
	"taskapp/internal/adapter/database"
)

var ErrNoURL = errors.New("DATABASE_URL is not set")

// DB is a pgx pool plus the Postgres statement dialect.
type DB struct {
	*pgxpool.Pool
	QueryBuilder *squirrel.StatementBuilderType
	Dialect      database.Dialect
}

// Open migrates the schema, then connects and pings the pool.
func Open(ctx context.Context, url string) (*DB, error) {
	if url == "" {
		return nil, ErrNoURL
	}

	poolCfg, err := pgxpool.ParseConfig(url)

	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	if err := RunMigrations(url); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)

	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", poolCfg.ConnConfig.Host, err)
	}

	builder := database.Postgres.Builder()

	slog.Info("PostgreSQL database ready",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"max_conns", poolCfg.MaxConns)

	return &DB{Pool: pool, QueryBuilder: &builder, Dialect: database.Postgres}, nil
}

// RunMigrations applies pending migrations over a short-lived database/sql
// handle, which is what the migrate driver takes.
func RunMigrations(url string) error {
	sqlDB, err := sql.Open("pgx", url)

	if err != nil {
		return err
	}

	defer sqlDB.Close()

	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})

	if err != nil {
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	return migrations.Up("postgres", driver)
}
