// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/invowk/imagekit/internal/config"
	"github.com/invowk/imagekit/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// skipConfigAnnotation marks commands that must work with a broken config file.
const skipConfigAnnotation = "imagekit/skip-config"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type rootFlags struct {
	verbose    bool
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "imagekit",
		Short: "Assemble container image descriptors from images, modules and overrides",
		Long: TitleStyle.Render("imagekit") + SubtitleStyle.Render(" - container image descriptor toolkit") + `

imagekit merges an image descriptor with the modules it installs and any
overrides into one effective descriptor, and resolves artifact download URLs
from Koji build metadata.

` + SubtitleStyle.Render("Examples:") + `
  imagekit merge image.yaml                 Print the effective image
  imagekit merge image.yaml -o prod.yaml    Apply an overrides file
  imagekit validate module.yaml             Check a descriptor against its schema
  imagekit artifact list image.yaml         Show where every artifact comes from
  imagekit module list                      List the available modules`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd, flags)
		},
	}

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/imagekit/config.cue)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newMergeCommand(app),
		newValidateCommand(app),
		newRunCommand(app),
		newArtifactCommand(app),
		newModuleCommand(app),
		newConfigCommand(app, flags),
	)

	return rootCmd
}

// setup loads configuration and sets up logging for one invocation.
func (a *App) setup(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := a.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.configPath})
	switch {
	case err != nil && cmd.Annotations[skipConfigAnnotation] != "":
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, flags.verbose))
	case err != nil:
		return wrapIssue(err, "load configuration", flags.configPath, issue.ConfigLoadFailedId)
	default:
		a.cfg = cfg
	}

	a.verbose = flags.verbose || a.cfg.UI.Verbose

	level := a.cfg.Log.Level
	switch {
	case cmd.Flags().Changed("log-level"):
		level = config.LogLevel(flags.logLevel)
		if err := level.Validate(); err != nil {
			return err
		}
	case a.verbose:
		level = config.LogLevelDebug
	}
	a.logger = newLogger(a.stderr, level.SlogLevel())

	switch a.cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		lipgloss.SetHasDarkBackground(true)
	case config.ColorSchemeLight:
		lipgloss.SetHasDarkBackground(false)
	}

	return nil
}

// handleError is the fang error handler: it prints ActionableErrors with their
// suggestions and, in verbose mode, the linked catalog entry.
func (a *App) handleError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, a.verbose))
	if !a.verbose {
		return
	}
	if rendered, ok := renderIssue(err, string(a.cfg.UI.ColorScheme)); ok {
		fmt.Fprint(w, rendered)
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// run executes the command tree with args and returns the process exit code.
func run(ctx context.Context, app *App, args []string) int {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Main runs imagekit with the process arguments and returns the exit code.
func Main() int {
	return run(context.Background(), NewApp(Dependencies{}), os.Args[1:])
}

// Execute runs imagekit and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}
