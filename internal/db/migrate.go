package db

import (
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/errs"
)

// Migrate applies every pending migration found at sourceURL
// (e.g. "file://migrations") to the database behind dsn.
func Migrate(sourceURL, dsn string) error {
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return errs.Wrap(err, "failed to create migrate instance")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrate instance", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema is up to date")
			return nil
		}
		return errs.Wrap(err, "failed to run migrations")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return errs.Wrap(err, "failed to read migration version")
	}
	slog.Info("database migrated", "version", version, "dirty", dirty)
	return nil
}
