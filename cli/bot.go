// ABOUTME: The long-running bot command
// ABOUTME: Runs the Telegram update loop, the OAuth callback server, and the sync scheduler until shutdown
package cli

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/networkgpt/networkgpt/bot"
	"github.com/networkgpt/networkgpt/sync"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func botCmd() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run the Telegram bot, OAuth callback server, and periodic sync",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Log Telegram API traffic"},
		},
		Action: func(c *cli.Context) error {
			s, err := newServices(c.Context, c, validateAll)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			api, err := tgbotapi.NewBotAPI(s.cfg.Telegram.Token)
			if err != nil {
				return fmt.Errorf("failed to connect to telegram: %w", err)
			}
			api.Debug = c.Bool("debug")
			s.logger.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")

			notifier := bot.NewAdminNotifier(api, s.cfg.Telegram.AdminIDs)
			b := bot.New(api, s.store, s.oauth, s.runner, notifier, s.cfg.Telegram.WelcomeMessage, s.logger)
			callbacks := bot.NewCallbackServer(s.cfg.OAuth.CallbackAddr, s.oauth, s.store, api, s.logger)
			scheduler := sync.NewScheduler(s.store, s.runner, s.cfg.Sync.Schedule, s.cfg.Sync.MaxParallel, s.logger)

			g, ctx := errgroup.WithContext(c.Context)

			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			g.Go(func() error {
				return callbacks.Start(ctx)
			})

			g.Go(func() error {
				u := tgbotapi.NewUpdate(0)
				u.Timeout = 60
				updates := api.GetUpdatesChan(u)

				go func() {
					<-ctx.Done()
					api.StopReceivingUpdates()
				}()

				return b.Run(ctx, updates)
			})

			err = g.Wait()
			s.logger.Info().Msg("shutdown complete")
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
