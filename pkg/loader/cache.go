// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// Module is one Load Cache entry.
	Module struct {
		// ID is the resolved full path, or "stub:<specifier>" for stubs.
		ID      string
		Path    *vfs.Path
		Exports *Exports
		// Loaded is set once the evaluator has returned. Modules observed
		// through a circular require may still be loading.
		Loaded bool

		loader *Loader
	}

	// Cache memoizes loaded modules for one run. It is passed explicitly
	// to every Loader; there is no process-wide cache.
	Cache struct {
		modules map[string]*Module
		aliases map[string]*Module
	}
)

// errStubRequire is returned when a stubbed module tries to require.
var errStubRequire = errors.New("stubbed module cannot require")

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		modules: make(map[string]*Module),
		aliases: make(map[string]*Module),
	}
}

// Get returns the module registered for a resolved full path.
func (c *Cache) Get(id string) (*Module, bool) {
	m, ok := c.modules[id]
	return m, ok
}

// Alias returns the module cached for a bare specifier without a slash.
func (c *Cache) Alias(spec string) (*Module, bool) {
	m, ok := c.aliases[spec]
	return m, ok
}

// Len returns the number of modules keyed by path.
func (c *Cache) Len() int { return len(c.modules) }

// IDs returns the cached module IDs in sorted order.
func (c *Cache) IDs() []string {
	return slices.Sorted(maps.Keys(c.modules))
}

// Dir returns the directory the module was loaded from, which relative
// requires are resolved against.
func (m *Module) Dir() *vfs.Path {
	if m.Path == nil {
		return nil
	}
	return m.Path.Parent()
}

// Require loads spec relative to the module's directory through the same
// Loader and Cache that loaded the module.
func (m *Module) Require(ctx context.Context, spec string) (*Module, error) {
	if m.loader == nil || m.Path == nil {
		return nil, &ResolveError{Specifier: spec, From: m.ID, Err: errStubRequire}
	}
	return m.loader.Require(ctx, m.Dir(), spec)
}
