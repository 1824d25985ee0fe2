// ABOUTME: Periodic contact sync for every authorized account
// ABOUTME: A cron schedule triggers a fan-out over accounts with a bounded number of parallel runs
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/networkgpt/networkgpt/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AccountLister lists the accounts the scheduler should sync.
type AccountLister interface {
	ListAuthorizedAccounts(ctx context.Context) ([]models.Account, error)
}

// RunReport is the outcome of one account's scheduled run.
type RunReport struct {
	AccountID int64
	Stats     models.SyncStats
	Err       error
}

// Scheduler runs a sync for all authorized accounts on a cron schedule.
type Scheduler struct {
	accounts    AccountLister
	syncer      Syncer
	schedule    string
	maxParallel int
	logger      zerolog.Logger

	cron *cron.Cron
}

func NewScheduler(accounts AccountLister, syncer Syncer, schedule string, maxParallel int, logger zerolog.Logger) *Scheduler {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Scheduler{
		accounts:    accounts,
		syncer:      syncer,
		schedule:    schedule,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Start registers the schedule and starts the cron loop. It stops when ctx is
// done. An empty schedule disables periodic sync.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.logger.Info().Msg("periodic sync disabled")
		return nil
	}

	adapter := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sync %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("periodic sync started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce syncs every authorized account once and reports each outcome.
func (s *Scheduler) RunOnce(ctx context.Context) []RunReport {
	accounts, err := s.accounts.ListAuthorizedAccounts(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list accounts for scheduled sync")
		return nil
	}

	reports := make([]RunReport, len(accounts))

	var g errgroup.Group
	g.SetLimit(s.maxParallel)

	for i := range accounts {
		i := i
		account := &accounts[i]
		g.Go(func() error {
			stats, err := s.syncer.Run(ctx, account)
			reports[i] = RunReport{AccountID: account.ID, Stats: stats, Err: err}

			switch {
			case errors.Is(err, ErrSyncInProgress):
				s.logger.Info().Int64("account_id", account.ID).Msg("sync already running, skipping")
			case err != nil:
				s.logger.Warn().Err(err).Int64("account_id", account.ID).Msg("scheduled sync failed")
			}
			// One account's failure must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
