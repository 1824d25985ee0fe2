// ABOUTME: Database connection management and initialization
// ABOUTME: Opens SQLite (WAL, XDG path) or PostgreSQL through sqlx and applies the schema
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open opens the database for the given driver and initializes the schema.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, "sqlite", "":
		return OpenDatabase(dsn)
	case DriverPostgres, "postgresql":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// OpenDatabase opens a SQLite database file, creating its directory if needed.
func OpenDatabase(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	// Ensure directory exists
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	// Open database with WAL mode and foreign keys enforced
	db, err := sqlx.Open(DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func openPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_foreign_keys=on"
}
