package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"item-console/internal/apiclient"
	"item-console/internal/config"
	"item-console/internal/format"
	"item-console/internal/logging"
	"item-console/internal/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	Origin     string
	Timeout    time.Duration
	PrettyJSON bool
	Format     string
	LogLevel   string
	LogFile    string

	cfg    config.Config
	cfgErr error

	log      *logrus.Logger
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	app := &App{}
	app.cfg, app.cfgErr = config.Load()
	if app.cfgErr != nil {
		// Flags still get usable defaults; the error surfaces in PersistentPreRunE.
		app.cfg = config.Config{
			APIURL:   config.DefaultAPIURL,
			Format:   format.Table,
			LogLevel: "info",
		}
	}

	cmd := &cobra.Command{
		Use:           "itemconsole",
		Short:         "Manage items in an items service (TUI + CLI)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive console
  itemconsole

  # Scriptable commands
  itemconsole items list
  itemconsole items submit --name Pen --price 1.5 --tax 0
  itemconsole items delete 3f1c... --yes

  # Direct item lookup (shortcut for: itemconsole items show <item-id>)
  itemconsole 0b6f1c2e-5d1a-4c8e-9d57-7a3c2f8d9e10

  # Run a local items service to develop against
  itemconsole serve --db ./sqlite.db
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.cfgErr != nil {
			return fmt.Errorf("config: %w", app.cfgErr)
		}
		if !format.Valid(app.Format) {
			return fmt.Errorf("unknown format: %s (want json, edn or table)", app.Format)
		}
		return app.initLogger(cmd.ErrOrStderr(), cmd.Root() == cmd && len(args) == 0)
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", app.cfg.APIURL, "Items service base URL")
	cmd.PersistentFlags().StringVar(&app.Origin, "origin", app.cfg.Origin, "Origin header sent with every request (empty to omit)")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", app.cfg.Timeout, "Per-request timeout (0 waits forever)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", app.cfg.Format, "Output format (json|edn|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", app.cfg.LogLevel, "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", app.cfg.LogFile, "Write logs to this file instead of stderr")

	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// initLogger builds the logger. The TUI owns the terminal, so without --log-file
// its logs are discarded.
func (app *App) initLogger(stderr io.Writer, tuiMode bool) error {
	if tuiMode && strings.TrimSpace(app.LogFile) == "" {
		app.log = logging.Discard()
		return nil
	}
	log, closeLog, err := logging.New(logging.Options{
		Level:  app.LogLevel,
		File:   app.LogFile,
		Output: stderr,
	})
	if err != nil {
		return err
	}
	app.log = log
	app.closeLog = closeLog
	return nil
}

func (app *App) logger() *logrus.Logger {
	if app.log == nil {
		return logging.Discard()
	}
	return app.log
}

func (app *App) client() *apiclient.Client {
	return apiclient.New(apiclient.Options{
		BaseURL: app.APIURL,
		Origin:  app.Origin,
		Timeout: app.Timeout,
		Logger:  app.logger(),
	})
}

func runTUI(cmd *cobra.Command, app *App) error {
	c := app.client()
	return tui.Run(cmd.Context(), c, tui.Options{
		APIURL: c.BaseURL(),
		Logger: app.logger(),
	})
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reported(err)
}
