// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"maps"
	"slices"
	"sync"
)

// Exports is the value a module exports. It starts empty and is filled by
// the evaluator, either key by key or by replacing the whole value.
type Exports struct {
	mu       sync.RWMutex
	values   map[string]any
	replaced bool
	value    any
}

// NewExports returns an empty export set.
func NewExports() *Exports {
	return &Exports{values: make(map[string]any)}
}

// Set stores one named export.
func (e *Exports) Set(key string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = v
}

// Get returns one named export.
func (e *Exports) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

// Keys returns the named exports in sorted order.
func (e *Exports) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.values))
}

// Len returns the number of named exports.
func (e *Exports) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.values)
}

// Replace sets the whole exported value, as for a JSON module whose export
// is the parsed document.
func (e *Exports) Replace(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaced = true
	e.value = v
}

// Value returns the replaced value when there is one, and a copy of the
// named exports otherwise.
func (e *Exports) Value() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.replaced {
		return e.value
	}
	return maps.Clone(e.values)
}
