// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modfs/internal/issue"
	"github.com/invowk/modfs/pkg/installer"
)

func newInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install [dir]",
		Short: "Install dependencies into an in-memory copy of a project",
		Long: `Install the dependencies of the package in dir (default: current directory).

The project is copied into memory, every dependency listed in its
manifest is fetched from the configured source and grafted below the
dependency directory, recursively. Packages already present are reused.
The installed packages are listed; the host directory is not modified.

Exits with status 2 when some dependencies could not be installed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runInstall(cmd.Context(), projectDir(args))
		},
	}
}

// projectDir returns the optional trailing directory argument.
func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func (a *App) runInstall(ctx context.Context, dir string) error {
	s, err := a.install(ctx, dir)
	if s == nil {
		return err
	}
	a.printPackages(s.report)
	n := 0
	if s.report != nil {
		n = len(s.report.Packages)
	}
	if err != nil {
		// Nothing grafted (e.g. an invalid root manifest) is a plain failure.
		if n == 0 {
			return installError(dir, err)
		}
		return &ExitError{Code: exitPartialInstall, Err: installError(dir, err)}
	}
	fmt.Fprintf(a.stdout, "%s Installed %d packages\n", SuccessStyle.Render("✓"), n)
	return nil
}

func (a *App) printPackages(report *installer.Report) {
	if report == nil {
		return
	}
	for _, pkg := range report.Packages {
		suffix := ""
		if pkg.Linked {
			suffix = " " + linkStyle.Render("(link)")
		}
		fmt.Fprintf(a.stdout, "  %s %s%s\n", pkg.ID, PathStyle.Render(pkg.Location), suffix)
	}
}

// installError attaches install suggestions to err.
func installError(dir string, err error) error {
	return issue.NewErrorContext().
		WithOperation("install dependencies").
		WithResource(dir).
		WithSuggestion("Check the dependencies listed in the manifest").
		WithSuggestion("Run 'modfs config show' to see which package source is used").
		Wrap(err).
		BuildError()
}
