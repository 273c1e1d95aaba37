// SPDX-License-Identifier: MPL-2.0

package vfs

import "iter"

// MaxSymlinkDepth bounds the number of symlinks followed while resolving a
// single specifier.
const MaxSymlinkDepth = 20

// walker carries the symlink budget shared by one resolution, including
// symlinks met on intermediate components of nested targets.
type walker struct {
	depth    int
	maxDepth int
}

func newWalker(maxDepth int) *walker {
	if maxDepth <= 0 {
		maxDepth = MaxSymlinkDepth
	}
	return &walker{maxDepth: maxDepth}
}

// Walk resolves spec starting at cwd (or at the root when spec is
// absolute). Symlinks met on intermediate components are followed; a
// symlink in final position is returned as is.
func Walk(cwd *Path, spec string) (*Path, error) {
	return newWalker(MaxSymlinkDepth).walk(ResolveRoot(cwd, spec), spec)
}

// Lookup is Walk followed by resolution of a final symlink.
func Lookup(cwd *Path, spec string) (*Path, error) {
	return LookupDepth(cwd, spec, MaxSymlinkDepth)
}

// LookupDepth is Lookup with an explicit symlink depth bound.
func LookupDepth(cwd *Path, spec string, maxDepth int) (*Path, error) {
	w := newWalker(maxDepth)
	p, err := w.walk(ResolveRoot(cwd, spec), spec)
	if err != nil {
		return nil, err
	}
	return w.follow(p)
}

// ResolveSymlink follows p while it is a symlink, interpreting each target
// relative to the symlink's own parent directory. Non-symlink paths are
// returned unchanged.
func ResolveSymlink(p *Path, maxDepth int) (*Path, error) {
	return newWalker(maxDepth).follow(p)
}

func (w *walker) walk(start *Path, spec string) (*Path, error) {
	cur := start
	for comp := range DecodeSpecifier(spec) {
		var err error
		if cur, err = w.follow(cur); err != nil {
			return nil, err
		}
		if comp == ".." {
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}
		dir, ok := cur.Directory()
		if !ok {
			return nil, pathErr("walk", cur.full, ErrNotDir)
		}
		n := dir.Get(comp)
		if n == nil {
			return nil, pathErr("walk", cur.Child(comp, nil).full, ErrNotFound)
		}
		cur = cur.Child(comp, n)
	}
	return cur, nil
}

func (w *walker) follow(p *Path) (*Path, error) {
	cur := p
	for {
		link, ok := cur.Symlink()
		if !ok {
			return cur, nil
		}
		if w.depth >= w.maxDepth {
			return nil, pathErr("readlink", p.full, ErrCyclic)
		}
		w.depth++
		base := cur.parent
		if base == nil {
			base = cur
		}
		next, err := w.walk(ResolveRoot(base, link.target), link.target)
		if err != nil {
			return nil, &PathError{Op: "readlink", Path: cur.full, Err: err}
		}
		cur = next
	}
}

// AncestorSearch yields the entries called name found in cwd and in each
// parent directory up to the root, nearest first. Directories that lack the
// entry are skipped; the entries themselves are not followed.
func AncestorSearch(cwd *Path, name string) iter.Seq[*Path] {
	return func(yield func(*Path) bool) {
		for dir := range cwd.Ancestors() {
			if found := dir.Lookup(name); found != nil {
				if !yield(found) {
					return
				}
			}
		}
	}
}
