package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Up applies every pending migration of the dialect directory ("sqlite" or
// "postgres") through an already opened database driver. The driver is
// left open.
func Up(dialect string, driver database.Driver) error {
	m, err := newMigrate(dialect, driver)

	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run %s migrations: %w", dialect, err)
	}

	return nil
}

// Down reverts every applied migration.
func Down(dialect string, driver database.Driver) error {
	m, err := newMigrate(dialect, driver)

	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert %s migrations: %w", dialect, err)
	}

	return nil
}

// Version reports the applied schema version.
func Version(dialect string, driver database.Driver) (uint, bool, error) {
	m, err := newMigrate(dialect, driver)

	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()

	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}

func newMigrate(dialect string, driver database.Driver) (*migrate.Migrate, error) {
	source, err := iofs.New(files, dialect)

	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)

	if err != nil {
		return nil, fmt.Errorf("create migration instance: %w", err)
	}

	return m, nil
}
