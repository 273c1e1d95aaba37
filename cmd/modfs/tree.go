// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/modfs/pkg/vfs"
)

type treeOptions struct {
	path  string
	match string
	deps  bool
}

func newTreeCommand(app *App) *cobra.Command {
	var opts treeOptions

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the installed in-memory tree",
		Long: `Install the project in dir and print the resulting in-memory tree.

With --match, only the paths matching a doublestar glob are printed, one
per line (for example '**/package.json' or 'node_modules/*/index.sh').
Symlinks are shown with their targets and are not followed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runTree(cmd.Context(), projectDir(args), opts)
		},
	}
	cmd.Flags().StringVar(&opts.path, "path", "/", "VFS directory to print")
	cmd.Flags().StringVar(&opts.match, "match", "", "only print paths matching this glob")
	cmd.Flags().BoolVar(&opts.deps, "deps", true, "descend into dependency directories")
	return cmd
}

func (a *App) runTree(ctx context.Context, dir string, opts treeOptions) error {
	s, err := a.install(ctx, dir)
	if err != nil {
		if s != nil {
			return installError(dir, err)
		}
		return err
	}
	root, err := s.lookupDir(opts.path)
	if err != nil {
		return err
	}

	if opts.match != "" {
		matches, err := vfs.Glob(root, opts.match)
		if err != nil {
			return err
		}
		for _, p := range matches {
			fmt.Fprintln(a.stdout, p.String()+linkSuffix(p))
		}
		return nil
	}

	return vfs.WalkTree(root, func(p *vfs.Path) error {
		if p == root {
			fmt.Fprintln(a.stdout, TitleStyle.Render(p.String()))
			return nil
		}
		depth := 0
		for anc := p.Parent(); anc != nil && anc != root; anc = anc.Parent() {
			depth++
		}
		name := vfs.EscapeName(p.Name())
		if _, ok := p.Directory(); ok {
			name = PathStyle.Render(name + "/")
		}
		fmt.Fprintf(a.stdout, "%s%s%s\n", strings.Repeat("  ", depth+1), name, linkSuffix(p))
		if !opts.deps && p.Name() == s.cfg.DepsDir {
			return vfs.SkipDir
		}
		return nil
	})
}

// linkSuffix renders " -> target" for symlinks.
func linkSuffix(p *vfs.Path) string {
	link, ok := p.Symlink()
	if !ok {
		return ""
	}
	return linkStyle.Render(" -> " + link.Target())
}
