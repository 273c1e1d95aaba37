// SPDX-License-Identifier: MPL-2.0

package evaluator

import (
	"context"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/invowk/modfs/pkg/loader"
)

// Mux dispatches evaluation on the module file's extension.
type Mux struct {
	byExt map[string]loader.Evaluator
}

// NewMux creates a mux serving JSON (".json"), TOML (".toml") and shell
// (".sh") modules. shell may be nil for a default Shell.
func NewMux(shell *Shell) *Mux {
	if shell == nil {
		shell = NewShell()
	}
	m := &Mux{byExt: make(map[string]loader.Evaluator)}
	m.Register(".json", JSON{})
	m.Register(".toml", TOML{})
	m.Register(".sh", shell)
	return m
}

// Register sets the evaluator for files ending in ext, replacing any
// previous one.
func (m *Mux) Register(ext string, eval loader.Evaluator) {
	m.byExt[strings.ToLower(ext)] = eval
}

// Extensions returns the registered extensions in sorted order.
func (m *Mux) Extensions() []string {
	return slices.Sorted(maps.Keys(m.byExt))
}

// Evaluate implements loader.Evaluator.
func (m *Mux) Evaluate(ctx context.Context, content []byte, mod *loader.Module) error {
	ext := strings.ToLower(path.Ext(mod.Path.Name()))
	eval, ok := m.byExt[ext]
	if !ok {
		return &UnsupportedError{ID: mod.ID, Ext: ext}
	}
	return eval.Evaluate(ctx, content, mod)
}
