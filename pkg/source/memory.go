// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/invowk/modfs/pkg/semver"
	"github.com/invowk/modfs/pkg/vfs"
)

// Memory is an in-memory registry. Every fetch hands out a deep copy, so
// installs never share nodes with the registry or with each other.
type Memory struct {
	mu       sync.RWMutex
	packages map[string]map[string]*vfs.Directory
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{packages: make(map[string]map[string]*vfs.Directory)}
}

// Add registers the tree of fsys as name@version, replacing any previous
// registration.
func (m *Memory) Add(name, version string, fsys *vfs.FileSystem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.packages[name] == nil {
		m.packages[name] = make(map[string]*vfs.Directory)
	}
	m.packages[name][version] = fsys.RootDirectory()
}

// AddFiles registers name@version built from a map of absolute paths to
// file contents.
func (m *Memory) AddFiles(name, version string, files map[string]string) error {
	fsys := vfs.New("memory:" + name + "@" + version)
	for p, content := range files {
		if _, err := vfs.WriteFile(fsys.Root(), p, []byte(content)); err != nil {
			return fmt.Errorf("add %s@%s: %w", name, version, err)
		}
	}
	m.Add(name, version, fsys)
	return nil
}

// Versions returns the registered versions of name, newest first.
func (m *Memory) Versions(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return semver.SortVersions(keys(m.packages[name]))
}

// Fetch implements installer.Fetcher.
func (m *Memory) Fetch(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, ok := m.packages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	version, err := selectVersion(name, constraint, keys(versions))
	if err != nil {
		return nil, err
	}
	return vfs.FromDirectory(vfs.Clone(versions[version]), "memory:"+name+"@"+version), nil
}
