// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/modfs/internal/depgraph"
	"github.com/invowk/modfs/internal/evaluator"
	"github.com/invowk/modfs/internal/issue"
	"github.com/invowk/modfs/pkg/installer"
	"github.com/invowk/modfs/pkg/loader"
	"github.com/invowk/modfs/pkg/manifest"
	"github.com/invowk/modfs/pkg/source"
	"github.com/invowk/modfs/pkg/vfs"
)

const (
	exitOK = iota
	exitFailure
	// exitPartialInstall is returned when some dependencies failed while
	// the rest of the tree was installed.
	exitPartialInstall
)

// ExitError carries a specific process status out of a RunE handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCode maps the error returned by the command tree to a status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitFailure
}

// classifyError maps a failure to the issue catalog entry explaining it.
// Zero means no entry applies.
func classifyError(err error) issue.Id {
	var (
		ae      *issue.ActionableError
		resolve *loader.ResolveError
		cycle   *depgraph.CycleError
	)
	switch {
	case errors.As(err, &ae) && ae.Issue != 0:
		return ae.Issue
	case errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, manifest.ErrInvalid):
		return issue.ManifestInvalidId
	case errors.Is(err, source.ErrNotFound):
		return issue.PackageNotFoundId
	case errors.Is(err, installer.ErrFetchFailed):
		return issue.FetchFailedId
	case errors.Is(err, evaluator.ErrUnsupported):
		return issue.UnsupportedFormatId
	case errors.Is(err, vfs.ErrCyclic):
		return issue.SymlinkCycleId
	case errors.As(err, &cycle):
		return issue.DependencyCycleId
	case errors.As(err, &resolve):
		return issue.ModuleNotFoundId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// renderError prints err for the user. Verbose mode adds the full error
// chain and the long-form issue hint rendered as markdown.
func (a *App) renderError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), issue.FormatChain(err, a.flags.verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	if !a.flags.verbose {
		fmt.Fprintln(w, SubtitleStyle.Render("Run with --verbose for details."))
		return
	}
	hint := issue.Get(id)
	if hint == nil {
		return
	}
	rendered, renderErr := hint.Render(a.colorScheme.GlamourStyle())
	if renderErr != nil {
		log.Warn("failed to render issue hint", "issue", id, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}
