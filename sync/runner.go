// ABOUTME: Sync run orchestration for one account
// ABOUTME: Opens a run record, fetches and reconciles contacts, and always closes the record
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/networkgpt/networkgpt/models"
	"github.com/rs/zerolog"
)

var (
	ErrSnapshot       = errors.New("failed to load existing contacts")
	ErrFetch          = errors.New("failed to fetch remote contacts")
	ErrCanceled       = errors.New("sync canceled")
	ErrNotAuthorized  = errors.New("google account not authorized")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// RunLogger records the lifecycle of a sync run.
type RunLogger interface {
	OpenRun(ctx context.Context, accountID int64) (*models.SyncRun, error)
	CloseRun(ctx context.Context, run *models.SyncRun, stats models.SyncStats, runErr error) error
}

// Syncer runs one full contact sync for an account.
type Syncer interface {
	Run(ctx context.Context, account *models.Account) (models.SyncStats, error)
}

// Runner wires a contact source, the reconciler, and the run logger together.
type Runner struct {
	source     ContactSource
	reconciler *Reconciler
	runs       RunLogger
	lock       RunLock
	logger     zerolog.Logger
}

// NewRunner creates a runner. A nil lock falls back to an in-process lock.
func NewRunner(source ContactSource, store ContactStore, runs RunLogger, lock RunLock, logger zerolog.Logger) *Runner {
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Runner{
		source:     source,
		reconciler: NewReconciler(store, logger),
		runs:       runs,
		lock:       lock,
		logger:     logger,
	}
}

// Run syncs the account's remote contacts into the local store. The run record
// is opened once and closed once, even when the context is canceled.
func (r *Runner) Run(ctx context.Context, account *models.Account) (models.SyncStats, error) {
	if !account.Authorized() {
		return models.SyncStats{}, ErrNotAuthorized
	}

	release, err := r.lock.Acquire(ctx, account.ID)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return models.SyncStats{}, ErrSyncInProgress
		}
		return models.SyncStats{}, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	defer release()

	log := r.logger.With().Int64("account_id", account.ID).Logger()

	run, err := r.runs.OpenRun(ctx, account.ID)
	if err != nil {
		return models.SyncStats{}, fmt.Errorf("failed to open sync run: %w", err)
	}
	log.Info().Str("run_id", run.ID).Msg("sync started")

	stats, runErr := r.sync(ctx, account)

	// The record must be finalized even if ctx is already canceled
	if err := r.runs.CloseRun(context.WithoutCancel(ctx), run, stats, runErr); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("failed to close sync run")
		if runErr == nil {
			runErr = fmt.Errorf("failed to close sync run: %w", err)
		}
	}

	if runErr != nil {
		log.Error().Err(runErr).Str("run_id", run.ID).Msg("sync failed")
		return stats, runErr
	}

	log.Info().
		Str("run_id", run.ID).
		Int("total", stats.Total).
		Int("added", stats.Added).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("sync finished")

	return stats, nil
}

func (r *Runner) sync(ctx context.Context, account *models.Account) (models.SyncStats, error) {
	persons, err := r.source.FetchAll(ctx, account)
	if err != nil {
		if ctx.Err() != nil {
			return models.SyncStats{}, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		if errors.Is(err, ErrNotAuthorized) {
			return models.SyncStats{}, err
		}
		return models.SyncStats{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	return r.reconciler.Reconcile(ctx, account.ID, ExtractAll(persons))
}
