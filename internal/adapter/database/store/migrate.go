package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"

	"taskapp/db/migrations"
	"taskapp/pkg/config"
)

var ErrNoSchema = errors.New("the memory store has no schema to migrate")

// MigrateUp applies pending migrations without opening a repository.
func MigrateUp(cfg *config.AppConfig) error {
	return withDriver(cfg, migrations.Up)
}

// MigrateDown reverts every applied migration.
func MigrateDown(cfg *config.AppConfig) error {
	return withDriver(cfg, migrations.Down)
}

func MigrationVersion(cfg *config.AppConfig) (version uint, dirty bool, err error) {
	err = withDriver(cfg, func(dialect string, driver database.Driver) error {
		version, dirty, err = migrations.Version(dialect, driver)
		return err
	})

	return version, dirty, err
}

func withDriver(cfg *config.AppConfig, fn func(dialect string, driver database.Driver) error) error {
	var (
		sqlDB  *sql.DB
		driver database.Driver
		err    error
	)

	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		if sqlDB, err = sql.Open("sqlite3", cfg.DatabasePath); err != nil {
			return fmt.Errorf("open sqlite %s: %w", cfg.DatabasePath, err)
		}

		driver, err = sqlite3.WithInstance(sqlDB, &sqlite3.Config{})

	case config.DriverPostgres:
		if sqlDB, err = sql.Open("pgx", cfg.DatabaseURL); err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}

		driver, err = migratepgx.WithInstance(sqlDB, &migratepgx.Config{})

	case config.DriverMemory:
		return ErrNoSchema

	default:
		return fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	defer sqlDB.Close()

	if err != nil {
		return fmt.Errorf("create %s migration driver: %w", cfg.DatabaseDriver, err)
	}

	return fn(cfg.DatabaseDriver, driver)
}
