// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modfs/internal/issue"
)

func newRunCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run <entry> [dir]",
		Short: "Evaluate a module and print its exports",
		Long: `Install the project in dir, then load entry from the project root and
print its exports as JSON.

Modules are evaluated by file extension: ".json" and ".toml" files export
their document, ".sh" scripts export their exported variables and may
load other modules with:

  eval "$(require ./other.sh)"

Script output is written to stderr.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runModule(cmd.Context(), args[0], projectDir(args[1:]))
		},
	}
}

func (a *App) runModule(ctx context.Context, entry, dir string) error {
	s, err := a.install(ctx, dir)
	if err != nil {
		if s != nil {
			return installError(dir, err)
		}
		return err
	}

	mod, err := a.newLoader(s).Require(ctx, s.fsys.Root(), entry)
	if err != nil {
		id := classifyError(err)
		if id == 0 {
			id = issue.EvaluationFailedId
		}
		return issue.NewErrorContext().
			WithOperation("run module").
			WithResource(entry).
			WithSuggestion("Run 'modfs resolve " + entry + "' to see which file is loaded").
			WithIssue(id).
			Wrap(err).
			BuildError()
	}

	out, err := json.MarshalIndent(mod.Exports.Value(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode exports of %s: %w", mod.ID, err)
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}
