// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/modfs/pkg/semver"
	"github.com/invowk/modfs/pkg/vfs"
)

// ArchiveExt is the file extension of packed package versions.
const ArchiveExt = ".tgz"

// Registry serves packages from a host directory laid out as
// <root>/<name>/<version>/ (unpacked) or <root>/<name>/<version>.tgz.
// Scoped names map to nested directories (<root>/@scope/name/...).
type Registry struct {
	root string
	opts options
}

// NewRegistry creates a registry rooted at the host directory root.
func NewRegistry(root string, opts ...Option) *Registry {
	return &Registry{root: root, opts: applyOptions(opts)}
}

// Versions lists the versions available for name, mapped to their host path.
func (r *Registry) Versions(name string) (map[string]string, error) {
	dir := filepath.Join(r.root, filepath.FromSlash(name))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, r.root)
	}
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", name, err)
	}

	versions := make(map[string]string, len(entries))
	for _, e := range entries {
		switch {
		case e.IsDir():
			versions[e.Name()] = filepath.Join(dir, e.Name())
		case strings.HasSuffix(e.Name(), ArchiveExt):
			versions[strings.TrimSuffix(e.Name(), ArchiveExt)] = filepath.Join(dir, e.Name())
		}
	}
	return versions, nil
}

// Fetch implements installer.Fetcher.
func (r *Registry) Fetch(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	versions, err := r.Versions(name)
	if err != nil {
		return nil, err
	}
	version, err := selectVersion(name, constraint, keys(versions))
	if err != nil {
		return nil, err
	}

	path := versions[version]
	origin := "registry:" + name + "@" + version
	r.opts.logger.Debug("registry hit", "package", name, "constraint", constraint, "version", version, "path", path)

	if !strings.HasSuffix(path, ArchiveExt) {
		fsys, err := LoadDir(path)
		if err != nil {
			return nil, err
		}
		return vfs.FromDirectory(fsys.RootDirectory(), origin), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	root, err := r.opts.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vfs.FromDirectory(root, origin), nil
}

// selectVersion picks the best version for constraint. A constraint that
// nothing satisfies is reported as ErrNotFound.
func selectVersion(name, constraint string, available []string) (string, error) {
	v, err := semver.Resolve(constraint, available)
	if errors.Is(err, semver.ErrNoMatch) {
		return "", fmt.Errorf("%w: %s@%s: %w", ErrNotFound, name, constraint, err)
	}
	if err != nil {
		return "", fmt.Errorf("%s@%s: %w", name, constraint, err)
	}
	return v, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
