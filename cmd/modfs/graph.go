// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modfs/internal/depgraph"
	"github.com/invowk/modfs/internal/issue"
)

func newGraphCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [dir]",
		Short: "Print installed packages in dependency order",
		Long: `Install the project in dir and print every package after the packages
it depends on, each followed by its direct dependencies.

Cyclic package graphs install fine, but have no such order; the packages
on the cycle are reported instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runGraph(cmd.Context(), projectDir(args))
		},
	}
}

func (a *App) runGraph(ctx context.Context, dir string) error {
	s, err := a.install(ctx, dir)
	if err != nil {
		if s != nil {
			return installError(dir, err)
		}
		return err
	}

	graph := s.report.Graph
	order, err := graph.InstallOrder()
	if err != nil {
		var cycle *depgraph.CycleError
		if !errors.As(err, &cycle) {
			return err
		}
		return issue.NewErrorContext().
			WithOperation("order packages").
			WithResource(dir).
			WithSuggestion("Remove one of the dependencies on the cycle from its manifest").
			WithIssue(issue.DependencyCycleId).
			Wrap(err).
			BuildError()
	}

	for _, id := range order {
		fmt.Fprintln(a.stdout, PathStyle.Render(id))
		for _, dep := range graph.Dependencies(id) {
			fmt.Fprintf(a.stdout, "  %s %s\n", SubtitleStyle.Render("→"), dep)
		}
	}
	return nil
}
