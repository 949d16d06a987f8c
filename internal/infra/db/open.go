package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/bryanwahyu/quality-gate/internal/config"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/migrations"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/mysql"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/postgres"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/sqlite"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/sqlstore"
)

// Open connects to the configured backend and, when enabled, migrates it.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, *sqlstore.AnalysisRepository, error) {
	var (
		conn *sql.DB
		repo *sqlstore.AnalysisRepository
		err  error
	)
	driver := cfg.Database.Driver
	switch driver {
	case "mysql":
		if conn, err = mysql.Connect(ctx, cfg.DSN()); err == nil {
			repo = mysql.NewAnalysisRepository(conn)
		}
	case "postgres":
		if conn, err = postgres.Connect(ctx, cfg.DSN()); err == nil {
			repo = postgres.NewAnalysisRepository(conn)
		}
	case "sqlite3":
		if conn, err = sqlite.Connect(ctx, cfg.DSN()); err == nil {
			repo = sqlite.NewAnalysisRepository(conn)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s connect: %w", driver, err)
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(conn, driver); err != nil {
			conn.Close()
			return nil, nil, err
		}
		log.Printf("database migrated driver=%s", driver)
	}
	return conn, repo, nil
}
