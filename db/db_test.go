package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/networkgpt/networkgpt/models"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func setupTestStore(t *testing.T) (*Store, *models.Account) {
	t.Helper()

	store := NewStore(setupTestDB(t))
	account := &models.Account{TelegramID: 1001, Username: "ann"}
	_, err := store.UpsertAccount(context.Background(), account)
	require.NoError(t, err)
	return store, account
}

func TestOpenDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	defer db.Close()

	// Verify database file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Verify schema was initialized
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('accounts', 'contacts', 'social_links', 'sync_runs')").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 tables, got %d", count)
	}

	// Verify WAL mode
	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected WAL mode, got %s", mode)
	}
}

func TestOpenDatabaseReinitializes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("Initial OpenDatabase failed: %v", err)
	}
	db.Close()

	// CREATE TABLE IF NOT EXISTS must tolerate an existing schema
	db, err = OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase should handle re-initialization gracefully, but got error: %v", err)
	}
	defer db.Close()
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	if err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestOpenDatabaseEmptyPath(t *testing.T) {
	_, err := OpenDatabase("")
	if err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := setupTestDB(t)

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	if enabled != 1 {
		t.Errorf("Expected foreign keys enabled, got %d", enabled)
	}
}
