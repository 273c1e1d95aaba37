// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/invowk/modfs/internal/metrics"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree bound to app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modfs",
		Short: "Install and load modules in an in-memory filesystem",
		Long: TitleStyle.Render("modfs") + SubtitleStyle.Render(" - Install and load modules in an in-memory filesystem") + `

modfs copies a project directory into memory, installs the dependencies
listed in its package.json from a package source, and resolves and
evaluates modules against the result. The host directory is never
modified.

` + SubtitleStyle.Render("Examples:") + `
  modfs install               Install dependencies of the current directory
  modfs tree --match '**/*.sh' List installed shell modules
  modfs resolve lodash        Show where a specifier resolves
  modfs run ./main.sh         Evaluate a module and print its exports
  modfs config show           Show current configuration`,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/modfs/config.cue)")
	rootCmd.PersistentFlags().BoolVar(&app.flags.metrics, "metrics", false, "print Prometheus metrics to stderr on exit")

	rootCmd.AddCommand(
		newInstallCommand(app),
		newResolveCommand(app),
		newRunCommand(app),
		newTreeCommand(app),
		newGraphCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the CLI with args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	rootCmd := newRootCommand(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			a.renderError(w, err)
		}),
	)

	if a.flags.metrics {
		if mErr := metrics.WriteText(a.stderr, a.registry); mErr != nil {
			fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+mErr.Error())
		}
	}

	return exitCode(err)
}

// Execute runs the CLI against the process arguments and exits.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
	os.Exit(app.Run(context.Background(), os.Args[1:]))
}
