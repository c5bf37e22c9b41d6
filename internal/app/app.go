// Package app provides the command-line interface
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mrcode/nightscout-autotune/internal/autotune"
	"github.com/mrcode/nightscout-autotune/internal/config"
	"github.com/mrcode/nightscout-autotune/internal/logging"
	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/mrcode/nightscout-autotune/internal/notifications"
	"github.com/spf13/cobra"
)

// All linker flags will be set at build time
var (
	version = "dev"
	commit  = "none"
)

// Notifier reports export outcomes
type Notifier interface {
	Notify(o notifications.Outcome) error
	SendTestNotification() error
}

// App holds the state shared by all commands
type App struct {
	stdout io.Writer
	stderr io.Writer
	clock  autotune.Clock

	store    *config.Store
	settings *models.Settings
	logger   *slog.Logger
	notifier Notifier

	// newNotifier builds the notifier once settings are loaded
	newNotifier func(*models.Settings) Notifier
}

// Option configures an App
type Option func(*App)

// WithOutput redirects command output and diagnostics
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithClock overrides the wall clock used for exports
func WithClock(clock autotune.Clock) Option {
	return func(a *App) {
		a.clock = clock
	}
}

// WithNotifier overrides the desktop notifier
func WithNotifier(n Notifier) Option {
	return func(a *App) {
		a.newNotifier = func(*models.Settings) Notifier { return n }
	}
}

// New creates a new App instance
func New(opts ...Option) *App {
	a := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
		clock:  autotune.SystemClock{},
		newNotifier: func(s *models.Settings) Notifier {
			return notifications.NewManager(s)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute runs the CLI with the given arguments
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.Command()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Command builds the root command and its subcommands
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "autotune",
		Short:         "Tune and export Nightscout insulin profiles.",
		Long:          `autotune builds the hourly working profile of an autotune run and exports it for Nightscout and oref0.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().String("config", "", "Path to settings file (default: settings.json in the user config dir)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(a.exportCommand())
	root.AddCommand(a.inspectCommand())
	root.AddCommand(a.curveCommand())
	root.AddCommand(a.configCommand())

	return root
}

// setup loads settings and builds the logger before any subcommand runs
func (a *App) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	noColor, _ := flags.GetBool("no-color")

	store, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		store.Set(models.KeyLogLevel, level)
	}

	a.store = store
	a.settings = store.Settings()
	if noColor {
		color.NoColor = true
	}
	a.logger = logging.New(a.stderr, a.settings.LogLevel, noColor || color.NoColor)
	a.notifier = a.newNotifier(a.settings)

	a.logger.Debug("settings loaded", "file", store.ConfigFile())
	return nil
}

// status prints a colored status line to stderr
func (a *App) status(c *color.Color, format string, args ...any) {
	_, _ = c.Fprintf(a.stderr, format+"\n", args...)
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)
