package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	_ "github.com/mattn/go-sqlite3"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/golang-migrate/migrate/v4/database/sqlite3"

	"github.com/rs/zerolog"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"

	"taskapp/db/migrations"
	"taskapp/internal/adapter/database"
)

const DefaultPath = "tasks.db"

type Options struct {
	Path           string
	Name           string
	LogSQL         bool
	TracerProvider trace.TracerProvider
}

type DB struct {
	*sql.DB
	QueryBuilder *squirrel.StatementBuilderType
	Dialect      database.Dialect
}

// Open opens the sqlite file (or an in-memory database), wraps it with
// tracing and optional SQL logging, and applies pending migrations.
func Open(opts Options) (*DB, error) {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}

	if opts.Name == "" {
		opts.Name = "taskapp"
	}

	tracerProvider := opts.TracerProvider

	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}

	sqlDB, err := otelsql.Open("sqlite3", opts.Path,
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName(opts.Name),
		otelsql.WithTracerProvider(tracerProvider),
	)

	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", opts.Path, err)
	}

	if opts.LogSQL {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		sqlDB = withSQLLog(sqlDB, opts.Path, os.Stdout)
	}

	if IsMemory(opts.Path) {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", opts.Path, err)
	}

	if err := RunMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	slog.Info("SQLite database ready", "path", opts.Path)

	return Wrap(sqlDB), nil
}

// Wrap builds a DB around an existing connection pool without migrating it.
func Wrap(sqlDB *sql.DB) *DB {
	queryBuilder := database.SQLite.Builder()

	return &DB{
		DB:           sqlDB,
		QueryBuilder: &queryBuilder,
		Dialect:      database.SQLite,
	}
}

func RunMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})

	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	return migrations.Up("sqlite", driver)
}

// withSQLLog reopens the traced driver behind a statement logger. The traced
// handle is closed; only its driver lives on inside the returned pool.
func withSQLLog(traced *sql.DB, dsn string, w io.Writer) *sql.DB {
	logger := zerolog.New(w).With().Timestamp().Logger()
	logged := sqldblogger.OpenDriver(dsn, traced.Driver(), zerologadapter.New(logger))

	traced.Close()

	return logged
}

func IsMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
