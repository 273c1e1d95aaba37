// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/modfs/pkg/manifest"
	"github.com/invowk/modfs/pkg/vfs"
)

// DefaultExtensions are tried, in order, after the exact specifier.
var DefaultExtensions = []string{".js", ".json"}

type (
	// Resolution is the outcome of resolving a specifier.
	Resolution struct {
		// Specifier is the specifier as requested.
		Specifier string
		// Path is the resolved file. It is nil when Stubbed is set.
		Path *vfs.Path
		// Stubbed reports that the platform-override map disabled the module.
		Stubbed bool
	}

	// ResolveError reports a specifier that could not be resolved.
	ResolveError struct {
		Specifier string
		From      string
		Err       error
	}

	// ResolveOption configures resolution.
	ResolveOption func(*resolveOptions)

	resolveOptions struct {
		extensions   []string
		depsDir      string
		manifestName string
		entryFields  []string
		maxDepth     int
	}

	resolver struct {
		opts resolveOptions
	}
)

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %q from %s: %v", e.Specifier, e.From, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// WithExtensions replaces the list of extensions tried after the exact
// specifier. Index files use the same list.
func WithExtensions(exts ...string) ResolveOption {
	return func(o *resolveOptions) {
		o.extensions = exts
	}
}

// WithResolveDepsDir overrides the dependency directory name.
func WithResolveDepsDir(name string) ResolveOption {
	return func(o *resolveOptions) {
		if name != "" {
			o.depsDir = name
		}
	}
}

// WithResolveManifestName overrides the manifest file name.
func WithResolveManifestName(name string) ResolveOption {
	return func(o *resolveOptions) {
		if name != "" {
			o.manifestName = name
		}
	}
}

// WithEntryFields sets which manifest fields name a package entry point,
// in priority order (manifest.FieldBrowser, manifest.FieldMain).
func WithEntryFields(fields ...string) ResolveOption {
	return func(o *resolveOptions) {
		if len(fields) > 0 {
			o.entryFields = fields
		}
	}
}

// WithMaxSymlinkDepth overrides vfs.MaxSymlinkDepth.
func WithMaxSymlinkDepth(n int) ResolveOption {
	return func(o *resolveOptions) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

func newResolver(opts []ResolveOption) *resolver {
	o := resolveOptions{
		extensions:   DefaultExtensions,
		depsDir:      manifest.DepsDirName,
		manifestName: manifest.FileName,
		entryFields:  []string{manifest.FieldBrowser, manifest.FieldMain},
		maxDepth:     vfs.MaxSymlinkDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &resolver{opts: o}
}

// Resolve maps spec, requested from the directory cwd, to a file.
// Failures are *ResolveError values wrapping the vfs error kind.
func Resolve(cwd *vfs.Path, spec string, opts ...ResolveOption) (*Resolution, error) {
	return newResolver(opts).resolve(cwd, spec)
}

func (r *resolver) resolve(cwd *vfs.Path, spec string) (*Resolution, error) {
	fail := func(err error) (*Resolution, error) {
		return nil, &ResolveError{Specifier: spec, From: cwd.String(), Err: err}
	}

	from, target := cwd, spec
	m, dir, err := manifest.FindNearest(cwd, r.opts.manifestName)
	if err != nil {
		return fail(err)
	}
	if m != nil {
		if o, ok := m.Browser.Override(spec); ok {
			if o.Disabled {
				return &Resolution{Specifier: spec, Stubbed: true}, nil
			}
			// Relative replacements are written relative to the manifest.
			target = o.Replacement
			if isPathSpecifier(target) {
				from = dir
			}
		}
	}

	var p *vfs.Path
	if isPathSpecifier(target) {
		p, err = r.resolvePath(from, target)
	} else {
		p, err = r.resolveBare(from, target)
	}
	if err != nil {
		return fail(err)
	}
	if p == nil {
		return fail(vfs.ErrNotFound)
	}
	return &Resolution{Specifier: spec, Path: p}, nil
}

// overridden reports whether the manifest nearest to cwd maps spec in its
// browser table. Lookup failures count as overridden so that resolve
// reports them.
func (r *resolver) overridden(cwd *vfs.Path, spec string) bool {
	m, _, err := manifest.FindNearest(cwd, r.opts.manifestName)
	if err != nil {
		return true
	}
	if m == nil {
		return false
	}
	_, ok := m.Browser.Override(spec)
	return ok
}

// isPathSpecifier reports whether spec is relative or absolute rather than
// a bare package name.
func isPathSpecifier(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		vfs.IsAbs(spec)
}

// lookup resolves spec and classifies the outcome. A missing entry is
// (nil, nil); every other failure is returned.
func (r *resolver) lookup(cwd *vfs.Path, spec string) (*vfs.Path, error) {
	p, err := vfs.LookupDepth(cwd, spec, r.opts.maxDepth)
	if errors.Is(err, vfs.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// loadAsFile tries spec and spec plus each extension. When spec itself
// names a directory and no file matched, the directory is returned as dir.
func (r *resolver) loadAsFile(cwd *vfs.Path, spec string) (file, dir *vfs.Path, err error) {
	exact, err := r.lookup(cwd, spec)
	if err != nil {
		return nil, nil, err
	}
	if exact != nil {
		if _, ok := exact.File(); ok {
			return exact, nil, nil
		}
		dir = exact
	}

	for _, ext := range r.opts.extensions {
		candidate := spec + ext
		p, err := r.lookup(cwd, candidate)
		if err != nil {
			return nil, nil, err
		}
		if p == nil {
			continue
		}
		if _, ok := p.File(); !ok {
			return nil, nil, &vfs.PathError{Op: "resolve", Path: p.String(), Err: vfs.ErrNotFile}
		}
		return p, nil, nil
	}
	return nil, dir, nil
}

// loadIndex tries the index files of dir.
func (r *resolver) loadIndex(dir *vfs.Path) (*vfs.Path, error) {
	for _, ext := range r.opts.extensions {
		p, err := r.lookup(dir, "index"+ext)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if _, ok := p.File(); !ok {
			return nil, &vfs.PathError{Op: "resolve", Path: p.String(), Err: vfs.ErrNotFile}
		}
		return p, nil
	}
	return nil, nil
}

// loadEntry resolves the manifest entry point of the package at dir,
// file first, then as a directory with index files.
func (r *resolver) loadEntry(dir *vfs.Path) (*vfs.Path, error) {
	m, err := manifest.Read(dir, r.opts.manifestName)
	if errors.Is(err, vfs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry := m.Entry(r.opts.entryFields...)
	if entry == "" {
		return nil, nil
	}
	file, sub, err := r.loadAsFile(dir, entry)
	if err != nil || file != nil {
		return file, err
	}
	if sub != nil {
		return r.loadIndex(sub)
	}
	return nil, nil
}

// resolvePath implements the file, extension, index, manifest order for
// relative and absolute specifiers.
func (r *resolver) resolvePath(cwd *vfs.Path, spec string) (*vfs.Path, error) {
	file, dir, err := r.loadAsFile(cwd, spec)
	if err != nil || file != nil {
		return file, err
	}
	if dir == nil {
		return nil, nil
	}
	if p, err := r.loadIndex(dir); err != nil || p != nil {
		return p, err
	}
	return r.loadEntry(dir)
}

// splitBare separates a bare specifier into the package name and the
// subpath: "@scope/pkg/lib/x" is ("@scope/pkg", "lib/x").
func splitBare(spec string) (name, subpath string) {
	n := 1
	if strings.HasPrefix(spec, "@") {
		n = 2
	}
	parts := strings.SplitN(spec, "/", n+1)
	if len(parts) <= n {
		return spec, ""
	}
	return strings.Join(parts[:n], "/"), parts[n]
}

// resolveBare searches the dependency directories of cwd and its
// ancestors, nearest first, for the package named by spec.
func (r *resolver) resolveBare(cwd *vfs.Path, spec string) (*vfs.Path, error) {
	name, subpath := splitBare(spec)
	entryName := manifest.NormalizeName(name)

	for candidate := range vfs.AncestorSearch(cwd, r.opts.depsDir) {
		depsDir, err := vfs.ResolveSymlink(candidate, r.opts.maxDepth)
		if errors.Is(err, vfs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found := depsDir.Lookup(entryName)
		if found == nil {
			continue
		}
		pkg, err := vfs.ResolveSymlink(found, r.opts.maxDepth)
		if err != nil {
			return nil, err
		}

		if _, ok := pkg.File(); ok {
			if subpath != "" {
				return nil, &vfs.PathError{Op: "resolve", Path: pkg.String(), Err: vfs.ErrNotDir}
			}
			return pkg, nil
		}
		if subpath != "" {
			return r.resolvePath(pkg, "./"+subpath)
		}
		if p, err := r.loadEntry(pkg); err != nil || p != nil {
			return p, err
		}
		return r.loadIndex(pkg)
	}
	return nil, nil
}
