package postgres

import (
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// RunMigrations applies all pending schema migrations from migrationsDir
// against the database identified by dsn. Already-applied migrations are a
// no-op, so it is safe to run at every startup.
func RunMigrations(dsn, migrationsDir string, log logging.Logger) error {
	if log == nil {
		log = logging.NewNopLogger()
	}

	// golang-migrate selects its pgx/v5 driver by URL scheme.
	dbURL := strings.Replace(dsn, "postgres://", "pgx5://", 1)

	m, err := migrate.New("file://"+migrationsDir, dbURL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"failed to initialise migrations").WithDetail("dir=" + migrationsDir)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("migration source close failed", logging.Err(srcErr))
		}
		if dbErr != nil {
			log.Warn("migration db close failed", logging.Err(dbErr))
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"failed to apply migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"failed to read migration version")
	}
	log.Named("postgres").Info("migrations applied",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}
