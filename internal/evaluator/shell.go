// SPDX-License-Identifier: MPL-2.0

package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/modfs/pkg/loader"
)

const (
	// RequireCommand is the shell command that loads another module.
	RequireCommand = "require"
	// ModuleVar holds the current module ID inside a shell module. It is
	// not part of the module's exports.
	ModuleVar = "MODFS_MODULE"
)

// exitNotFound is the status of commands a shell module may not run.
const exitNotFound = 127

type (
	// Shell evaluates POSIX shell modules in-process. External commands
	// are not available and file redirections are limited to /dev/null.
	Shell struct {
		stdout io.Writer
		stderr io.Writer
		logger *log.Logger
	}

	// ShellOption configures a Shell evaluator.
	ShellOption func(*Shell)

	// run is the state of one module evaluation.
	run struct {
		mod    *loader.Module
		logger *log.Logger

		mu         sync.Mutex
		requireErr error
	}
)

// WithStdout sets where shell modules write their standard output.
func WithStdout(w io.Writer) ShellOption {
	return func(s *Shell) {
		if w != nil {
			s.stdout = w
		}
	}
}

// WithStderr sets where shell modules write their standard error.
func WithStderr(w io.Writer) ShellOption {
	return func(s *Shell) {
		if w != nil {
			s.stderr = w
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) ShellOption {
	return func(s *Shell) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewShell creates a shell evaluator. Output is discarded by default.
func NewShell(opts ...ShellOption) *Shell {
	s := &Shell{
		stdout: io.Discard,
		stderr: io.Discard,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate implements loader.Evaluator.
func (s *Shell) Evaluate(ctx context.Context, content []byte, mod *loader.Module) error {
	prog, err := syntax.NewParser().Parse(bytes.NewReader(content), mod.ID)
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	s.logger.Debug("evaluating shell module", "id", mod.ID)
	r := &run{mod: mod, logger: s.logger}
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(ModuleVar+"="+mod.ID)),
		interp.StdIO(nil, s.stdout, s.stderr),
		interp.ExecHandlers(r.execHandler),
		interp.OpenHandler(openHandler),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	runErr := runner.Run(ctx, prog)
	for name, vr := range runner.Vars {
		if exportable(name, vr) {
			mod.Exports.Set(name, vr.String())
		}
	}

	r.mu.Lock()
	requireErr := r.requireErr
	r.mu.Unlock()
	if requireErr != nil {
		return requireErr
	}

	if runErr != nil {
		var status interp.ExitStatus
		if errors.As(runErr, &status) {
			return fmt.Errorf("script exited with status %d", uint8(status))
		}
		return fmt.Errorf("script execution failed: %w", runErr)
	}
	return nil
}

func exportable(name string, vr expand.Variable) bool {
	return vr.Exported && vr.IsSet() && vr.Kind == expand.String && name != ModuleVar
}

// execHandler serves the require command and refuses every other external
// command.
func (r *run) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		hc := interp.HandlerCtx(ctx)
		if args[0] != RequireCommand {
			fmt.Fprintf(hc.Stderr, "%s: command not available in modules\n", args[0])
			return interp.ExitStatus(exitNotFound)
		}
		if len(args) != 2 {
			fmt.Fprintf(hc.Stderr, "usage: %s <specifier>\n", RequireCommand)
			return interp.ExitStatus(2)
		}

		// Publish what is exported so far; a cyclic require of this module
		// observes these values.
		for name, vr := range hc.Env.Each {
			if exportable(name, vr) {
				r.mod.Exports.Set(name, vr.String())
			}
		}

		r.logger.Debug("require", "from", r.mod.ID, "spec", args[1])
		dep, err := r.mod.Require(ctx, args[1])
		if err != nil {
			r.fail(err)
			fmt.Fprintf(hc.Stderr, "%s: %v\n", RequireCommand, err)
			return interp.ExitStatus(1)
		}
		if err := writeAssignments(hc.Stdout, dep.Exports); err != nil {
			r.fail(err)
			return interp.ExitStatus(1)
		}
		return nil
	}
}

func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.requireErr == nil {
		r.requireErr = err
	}
}

// writeAssignments prints exports as shell assignments, one per line.
// Keys that are not valid shell names are left out.
func writeAssignments(w io.Writer, exports *loader.Exports) error {
	var sb strings.Builder
	for _, key := range exports.Keys() {
		if !syntax.ValidName(key) {
			continue
		}
		v, _ := exports.Get(key)
		quoted, err := syntax.Quote(fmt.Sprint(v), syntax.LangPOSIX)
		if err != nil {
			return fmt.Errorf("export %s: %w", key, err)
		}
		fmt.Fprintf(&sb, "%s=%s\n", key, quoted)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == os.DevNull {
		return interp.DefaultOpenHandler()(ctx, path, flag, perm)
	}
	return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrPermission}
}
