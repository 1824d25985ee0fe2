// ABOUTME: Wiring of configuration, storage, OAuth, and the sync runner for CLI commands
// ABOUTME: Every command builds exactly the services it needs and closes them on exit
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/networkgpt/networkgpt/config"
	"github.com/networkgpt/networkgpt/db"
	"github.com/networkgpt/networkgpt/logging"
	"github.com/networkgpt/networkgpt/sync"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

type services struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *db.Store
	oauth  *sync.OAuth
	runner *sync.Runner

	closers []func() error
}

type validation int

const (
	validateNone validation = iota
	validateSync
	validateAll
)

func loadConfig(c *cli.Context, level validation) (*config.Config, error) {
	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return nil, err
	}

	switch level {
	case validateAll:
		err = cfg.Validate()
	case validateSync:
		err = cfg.ValidateSync()
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured database and creates the schema.
func openStore(cfg *config.Config) (*db.Store, error) {
	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db.NewStore(database), nil
}

func newServices(ctx context.Context, c *cli.Context, level validation) (*services, error) {
	cfg, err := loadConfig(c, level)
	if err != nil {
		return nil, err
	}

	s := &services{
		cfg:    cfg,
		logger: logging.New(cfg.Logging.Level, cfg.Logging.Format),
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.closers = append(s.closers, store.Close)

	if level == validateNone {
		return s, nil
	}

	oauthConfig := sync.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, cfg.Google.Scopes)
	s.oauth = sync.NewOAuth(oauthConfig, sync.NewStateSigner(cfg.OAuth.StateSecret, cfg.OAuth.StateTTL), store)

	lock, err := s.newLock(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	source := sync.NewPeopleSource(s.oauth, cfg.Google.PageSize)
	s.runner = sync.NewRunner(source, store, store, lock, s.logger)

	return s, nil
}

func (s *services) newLock(ctx context.Context) (sync.RunLock, error) {
	if s.cfg.Sync.Lock != config.LockRedis {
		return sync.NewLocalLock(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Sync.RedisAddr,
		Password: s.cfg.Sync.RedisPassword,
		DB:       s.cfg.Sync.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.closers = append(s.closers, client.Close)

	return sync.NewRedisLock(client, "", s.cfg.Sync.LockTTL), nil
}

// Close releases resources in reverse order of acquisition.
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
