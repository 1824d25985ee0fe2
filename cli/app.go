// ABOUTME: Command-line entry points
// ABOUTME: Builds the urfave/cli application with bot, sync, runs, auth-url, and init commands
package cli

import (
	"github.com/urfave/cli/v2"
)

// NewApp creates the CLI application with all commands.
func NewApp(version string) *cli.App {
	app := &cli.App{
		Name:    "networkgpt",
		Usage:   "Telegram bot that keeps your Google contacts in sync",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"NETWORKGPT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			botCmd(),
			syncCmd(),
			runsCmd(),
			authURLCmd(),
			initCmd(),
		},
	}
	// main reports errors and picks the exit code
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}
