package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlite_migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
)

// LatestMigrationVersion is the newest schema this binary knows. A database
// at a higher version was written by a newer release and is refused.
//
// NOTE: This MUST be updated when a new migration is added.
const LatestMigrationVersion uint = 1

// ErrMigrationDowngrade is returned when the database schema is newer than
// LatestMigrationVersion.
var ErrMigrationDowngrade = errors.New("database downgrade detected")

// migrateOptions holds options for ApplyMigrations.
type migrateOptions struct {
	latestVersion uint
	backup        bool
}

// MigrateOpt customizes ApplyMigrations.
type MigrateOpt func(*migrateOptions)

// WithLatestVersion overrides the newest version migrations run up to.
func WithLatestVersion(version uint) MigrateOpt {
	return func(o *migrateOptions) {
		o.latestVersion = version
	}
}

// WithoutBackup skips the copy taken before migrating an existing database.
func WithoutBackup() MigrateOpt {
	return func(o *migrateOptions) {
		o.backup = false
	}
}

// migrationLogger adapts slog to migrate.Logger.
type migrationLogger struct {
	log *slog.Logger
}

func (m *migrationLogger) Printf(format string, v ...any) {
	m.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m *migrationLogger) Verbose() bool {
	return false
}

// ApplyMigrations brings the interview database at dbPath up to the latest
// schema version using the embedded migration files. An existing database
// is backed up next to dbPath before it is changed.
func ApplyMigrations(db *sql.DB, dbPath string, log *slog.Logger,
	opts ...MigrateOpt) error {

	o := &migrateOptions{
		latestVersion: LatestMigrationVersion,
		backup:        true,
	}
	for _, opt := range opts {
		opt(o)
	}

	driver, err := sqlite_migrate.WithInstance(
		db, &sqlite_migrate.Config{},
	)
	if err != nil {
		return fmt.Errorf("unable to create migration driver: %w", err)
	}

	source, err := httpfs.New(http.FS(sqlSchemas), "migrations")
	if err != nil {
		return fmt.Errorf("unable to open migrations: %w", err)
	}

	mig, err := migrate.NewWithInstance("httpfs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	mig.Log = &migrationLogger{log: log}

	version, dirty, err := mig.Version()
	fresh := errors.Is(err, migrate.ErrNilVersion)
	switch {
	case err != nil && !fresh:
		return fmt.Errorf("unable to determine schema version: %w", err)

	// A half applied migration needs a human to look at it.
	case dirty:
		return fmt.Errorf("database is dirty at version %d, manual "+
			"intervention required", version)

	case !fresh && version > o.latestVersion:
		return fmt.Errorf("%w: db_version=%d, latest=%d",
			ErrMigrationDowngrade, version, o.latestVersion)

	case !fresh && version == o.latestVersion:
		return nil
	}

	if !fresh && o.backup {
		if err := backupDatabase(db, dbPath, log); err != nil {
			return fmt.Errorf("unable to back up database: %w", err)
		}
	}

	log.Info("Applying migrations", "from_version", version,
		"to_version", o.latestVersion)

	err = mig.Migrate(o.latestVersion)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// backupDatabase writes a consistent copy of the database with VACUUM INTO.
func backupDatabase(db *sql.DB, dbPath string, log *slog.Logger) error {
	dest := fmt.Sprintf("%s.%d.backup", dbPath, time.Now().UnixNano())

	log.Info("Backing up database before migration", "backup", dest)

	_, err := db.ExecContext(context.Background(), "VACUUM INTO ?", dest)

	return err
}
