// ABOUTME: Terminal commands for contact sync
// ABOUTME: Runs a sync for one Telegram user, lists past runs, prints consent URLs, and initializes the database
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/networkgpt/networkgpt/bot"
	"github.com/networkgpt/networkgpt/config"
	"github.com/networkgpt/networkgpt/db"
	"github.com/networkgpt/networkgpt/models"
	"github.com/urfave/cli/v2"
)

var errUnknownUser = errors.New("no account for this Telegram user; send /start to the bot first")

func telegramIDFlag() *cli.Int64Flag {
	return &cli.Int64Flag{Name: "telegram-id", Aliases: []string{"u"}, Usage: "Telegram user id", Required: true}
}

func findAccount(c *cli.Context, store *db.Store) (*models.Account, error) {
	account, err := store.GetAccountByTelegramID(c.Context, c.Int64("telegram-id"))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errUnknownUser
	}
	return account, nil
}

func syncCmd() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync Google contacts for one Telegram user",
		Flags: []cli.Flag{telegramIDFlag()},
		Action: func(c *cli.Context) error {
			s, err := newServices(c.Context, c, validateSync)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			account, err := findAccount(c, s.store)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, "Syncing Google Contacts...")
			stats, err := s.runner.Run(c.Context, account)
			if err != nil {
				return fmt.Errorf("contact sync failed: %w", err)
			}

			fmt.Fprintln(c.App.Writer, bot.FormatStats(stats))
			return nil
		},
	}
}

func runsCmd() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent sync runs for one Telegram user",
		Flags: []cli.Flag{
			telegramIDFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Maximum number of runs"},
		},
		Action: func(c *cli.Context) error {
			s, err := newServices(c.Context, c, validateNone)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			account, err := findAccount(c, s.store)
			if err != nil {
				return err
			}

			runs, err := s.store.ListRuns(c.Context, account.ID, c.Int("limit"))
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.App.Writer, "No sync runs yet.")
				return nil
			}

			for i := range runs {
				fmt.Fprintf(c.App.Writer, "%s  %s\n", runs[i].ID, bot.FormatRun(&runs[i]))
			}
			return nil
		},
	}
}

func authURLCmd() *cli.Command {
	return &cli.Command{
		Name:  "auth-url",
		Usage: "Print the Google consent URL for one Telegram user",
		Flags: []cli.Flag{
			telegramIDFlag(),
			&cli.BoolFlag{Name: "open", Usage: "Open the URL in the default browser"},
		},
		Action: func(c *cli.Context) error {
			s, err := newServices(c.Context, c, validateSync)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if _, err := findAccount(c, s.store); err != nil {
				return err
			}

			authURL, err := s.oauth.AuthURL(c.Int64("telegram-id"))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, authURL)
			if c.Bool("open") {
				_ = openBrowser(authURL)
			}
			return nil
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the database schema and write a sample config file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "write-config", Usage: "Write a sample config to this path if it does not exist"},
		},
		Action: func(c *cli.Context) error {
			if path := c.String("write-config"); path != "" {
				if err := writeSampleConfig(path); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Sample config: %s\n", path)
			}

			cfg, err := loadConfig(c, validateNone)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Fprintf(c.App.Writer, "Database initialized (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func writeSampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.Sample()), 0600); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
