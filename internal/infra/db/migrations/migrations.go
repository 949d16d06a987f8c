package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed mysql/*.sql postgres/*.sql sqlite3/*.sql
var migrationsFS embed.FS

// Status holds information about database migration state
type Status struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

// Up applies every pending migration for the driver ("mysql", "postgres", "sqlite3").
func Up(db *sql.DB, driver string) error {
	m, err := migrator(db, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", driver, err)
	}
	return nil
}

// GetStatus returns the current migration status
func GetStatus(db *sql.DB, driver string) (*Status, error) {
	m, err := migrator(db, driver)
	if err != nil {
		return nil, err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, driver)
	if err != nil {
		return nil, err
	}
	var latest uint
	if first, err := source.First(); err == nil {
		latest = first
		for {
			next, err := source.Next(latest)
			if err != nil {
				break
			}
			latest = next
		}
	}

	return &Status{
		CurrentVersion: version,
		LatestVersion:  latest,
		Dirty:          dirty,
		Pending:        version < latest,
	}, nil
}

func migrator(db *sql.DB, driver string) (*migrate.Migrate, error) {
	var (
		inst database.Driver
		err  error
	)
	switch driver {
	case "mysql":
		inst, err = mysql.WithInstance(db, &mysql.Config{})
	case "postgres":
		inst, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite3":
		inst, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, driver)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", source, driver, inst)
}
