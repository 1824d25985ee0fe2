// ABOUTME: Schema migration utility for the contact sync database
// ABOUTME: Reports missing tables, backs up SQLite files, and applies the schema with dry-run support

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/networkgpt/networkgpt/db"
	"github.com/networkgpt/networkgpt/logging"
	"github.com/rs/zerolog"
)

var requiredTables = []string{"accounts", "contacts", "social_links", "sync_runs"}

func main() {
	driver := flag.String("driver", db.DriverSQLite, "Database driver: sqlite3 or postgres")
	dsn := flag.String("dsn", "", "Database path or connection string (required)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Copy the SQLite file before migrating")
	flag.Parse()

	logger := logging.New("info", logging.FormatText)

	if *dsn == "" {
		logger.Fatal().Msg("-dsn flag is required")
	}

	if err := migrate(logger, *driver, *dsn, *dryRun, *backup); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	logger.Info().Msg("migration completed successfully")
}

func migrate(logger zerolog.Logger, driver, dsn string, dryRun, createBackup bool) error {
	sqlite := driver == db.DriverSQLite || driver == "sqlite" || driver == ""

	if sqlite && createBackup && !dryRun {
		if err := backupFile(logger, dsn); err != nil {
			return err
		}
	}

	database, err := sqlx.Open(driverName(driver), dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	tables, err := currentTables(database, sqlite)
	if err != nil {
		return fmt.Errorf("failed to get current tables: %w", err)
	}
	logger.Info().Strs("tables", tables).Msg("current tables")

	missing := missingTables(tables)
	if len(missing) == 0 {
		logger.Info().Msg("schema is up to date; indexes will be re-checked")
	}

	if dryRun {
		if len(missing) > 0 {
			logger.Info().Msgf("[DRY RUN] would create tables: %s", strings.Join(missing, ", "))
		}
		logger.Info().Msg("[DRY RUN] would create missing indexes")
		return nil
	}

	if err := db.InitSchema(database); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info().Strs("created", missing).Msg("schema applied")

	return nil
}

func driverName(driver string) string {
	switch driver {
	case db.DriverPostgres, "postgresql":
		return db.DriverPostgres
	default:
		return db.DriverSQLite
	}
}

func backupFile(logger zerolog.Logger, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("no existing database file, skipping backup")
		return nil
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	logger.Info().Str("path", backupPath).Msg("creating backup")

	input, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}

func currentTables(database *sqlx.DB, sqlite bool) ([]string, error) {
	query := `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	if sqlite {
		query = `SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`
	}

	var tables []string
	if err := database.Select(&tables, query); err != nil {
		return nil, err
	}
	return tables, nil
}

func missingTables(existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t] = true
	}

	var missing []string
	for _, t := range requiredTables {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}
