package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bryanwahyu/quality-gate/internal/infra/db/sqlstore"
)

// Connect opens the database file, creating its directory when needed.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if path, _, _ := strings.Cut(dsn, "?"); path != "" && !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer at a time; avoids "database is locked" under concurrent saves
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewAnalysisRepository(db *sql.DB) *sqlstore.AnalysisRepository {
	return sqlstore.NewAnalysisRepository(db, sqlstore.SQLite)
}
