package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtyMigration means a previous run failed halfway and the schema needs
// manual repair before the API may start.
var ErrDirtyMigration = errors.New("database schema is dirty")

// RunMigrations applies all pending up-migrations from migrationsPath.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if ver, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("%w at version %d", ErrDirtyMigration, ver)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	ver, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	slog.Info("database migrations applied", "version", ver)
	return nil
}
