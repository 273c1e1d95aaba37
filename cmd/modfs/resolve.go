// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modfs/internal/issue"
)

func newResolveCommand(app *App) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "resolve <specifier> [dir]",
		Short: "Show the file a module specifier resolves to",
		Long: `Install the project in dir, then resolve specifier as a require call
made from the --from directory would, and print the resolved path.

Specifiers are relative ("./lib/util"), absolute ("/lib/util") or bare
("lodash", "@scope/name/sub"). Modules disabled by the manifest's
browser field are reported as disabled.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runResolve(cmd.Context(), args[0], projectDir(args[1:]), from)
		},
	}
	cmd.Flags().StringVar(&from, "from", "/", "VFS directory the specifier is resolved from")
	return cmd
}

func (a *App) runResolve(ctx context.Context, spec, dir, from string) error {
	s, err := a.install(ctx, dir)
	if err != nil {
		if s != nil {
			return installError(dir, err)
		}
		return err
	}

	cwd, err := s.lookupDir(from)
	if err != nil {
		return err
	}
	res, err := a.newLoader(s).Resolve(cwd, spec)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("resolve module").
			WithResource(spec).
			WithSuggestion("Run 'modfs tree' to list the installed files").
			WithSuggestion("Check that the package is listed in the manifest dependencies").
			Wrap(err).
			BuildError()
	}

	if res.Stubbed {
		fmt.Fprintf(a.stdout, "%s %s\n", spec, SubtitleStyle.Render("(disabled)"))
		return nil
	}
	fmt.Fprintln(a.stdout, res.Path.String())
	return nil
}
