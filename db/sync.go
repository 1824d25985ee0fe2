// ABOUTME: Database operations for the sync_runs table
// ABOUTME: Opens and finalizes per-account sync run records and lists run history
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/networkgpt/networkgpt/models"
	"github.com/oklog/ulid/v2"
)

const runColumns = `id, account_id, started_at, finished_at, success,
	total_contacts, added_contacts, updated_contacts, skipped_contacts, failed_contacts,
	error_message`

// OpenRun creates the run record for a sync that is about to start.
func (s *Store) OpenRun(ctx context.Context, accountID int64) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:        ulid.Make().String(),
		AccountID: accountID,
		StartedAt: s.stamp(),
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_runs (id, account_id, started_at, success)
		VALUES (?, ?, ?, ?)
	`), run.ID, run.AccountID, run.StartedAt, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open sync run: %w", err)
	}

	return run, nil
}

// CloseRun finalizes a run with its statistics, or as failed when runErr is set.
// A run is closed at most once; closing it again returns ErrRunClosed.
func (s *Store) CloseRun(ctx context.Context, run *models.SyncRun, stats models.SyncStats, runErr error) error {
	if run == nil {
		return ErrRunNotFound
	}

	finishedAt := s.stamp()
	success := runErr == nil

	var errorMessage *string
	if runErr != nil {
		msg := runErr.Error()
		errorMessage = &msg
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_runs
		SET finished_at = ?,
			success = ?,
			total_contacts = ?,
			added_contacts = ?,
			updated_contacts = ?,
			skipped_contacts = ?,
			failed_contacts = ?,
			error_message = ?
		WHERE id = ? AND finished_at IS NULL
	`), finishedAt, success, stats.Total, stats.Added, stats.Updated, stats.Skipped, stats.Failed,
		errorMessage, run.ID)
	if err != nil {
		return fmt.Errorf("failed to close sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		existing, getErr := s.GetRun(ctx, run.ID)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return ErrRunNotFound
		}
		return ErrRunClosed
	}

	run.FinishedAt = &finishedAt
	run.Success = success
	run.SyncStats = stats
	run.ErrorMessage = errorMessage

	return nil
}

// GetRun returns nil when no run has the id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.db.GetContext(ctx, &run, s.rebind(`
		SELECT `+runColumns+`
		FROM sync_runs WHERE id = ?
	`), id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}

	return &run, nil
}

// LatestRun returns the most recent run for the account, or nil if it never synced.
func (s *Store) LatestRun(ctx context.Context, accountID int64) (*models.SyncRun, error) {
	runs, err := s.ListRuns(ctx, accountID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns the account's runs, newest first.
func (s *Store) ListRuns(ctx context.Context, accountID int64, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	var runs []models.SyncRun
	err := s.db.SelectContext(ctx, &runs, s.rebind(`
		SELECT `+runColumns+`
		FROM sync_runs
		WHERE account_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`), accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	return runs, nil
}
