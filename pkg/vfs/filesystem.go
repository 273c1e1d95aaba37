// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// FileSystem is a root directory plus an opaque origin tag describing where
// its content came from (e.g., "registry:lodash@4.17.21").
type FileSystem struct {
	root   *Directory
	origin string
}

// New creates an empty filesystem.
func New(origin string) *FileSystem {
	return &FileSystem{root: NewDirectory(), origin: origin}
}

// FromDirectory wraps an existing directory tree.
func FromDirectory(root *Directory, origin string) *FileSystem {
	return &FileSystem{root: root, origin: origin}
}

// Root returns the root Path.
func (f *FileSystem) Root() *Path { return NewRoot(f.root) }

// RootDirectory returns the root directory node.
func (f *FileSystem) RootDirectory() *Directory { return f.root }

// Origin returns the origin tag.
func (f *FileSystem) Origin() string { return f.origin }

// MkdirAll walks spec from cwd, creating missing directories, and returns
// the path of the last one. Existing symlinks on the way are followed.
func MkdirAll(cwd *Path, spec string) (*Path, error) {
	w := newWalker(MaxSymlinkDepth)
	cur := ResolveRoot(cwd, spec)
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
			return nil, pathErr("mkdir", cur.full, ErrNotDir)
		}
		n := dir.Get(comp)
		if n == nil {
			n = NewDirectory()
			if err := dir.Put(comp, n); err != nil {
				return nil, err
			}
		}
		cur = cur.Child(comp, n)
	}
	cur, err := w.follow(cur)
	if err != nil {
		return nil, err
	}
	if _, ok := cur.Directory(); !ok {
		return nil, pathErr("mkdir", cur.full, ErrNotDir)
	}
	return cur, nil
}

// splitLast separates the parent specifier and the final component name.
func splitLast(spec string) (parent, name string) {
	var comps []string
	for c := range DecodeSpecifier(spec) {
		comps = append(comps, c)
	}
	if len(comps) == 0 {
		return spec, ""
	}
	name = comps[len(comps)-1]
	for _, c := range comps[:len(comps)-1] {
		parent = Join(parent, escapeName(c))
	}
	if IsAbs(spec) {
		parent = "/" + parent
	}
	return parent, name
}

// place creates the parent directories of spec and inserts n as its final
// component. An existing entry is an error unless overwrite is set.
func place(cwd *Path, spec string, n Node, overwrite bool) (*Path, error) {
	parentSpec, name := splitLast(spec)
	if name == "" || name == ".." {
		return nil, pathErr("create", spec, ErrInvalidName)
	}
	parent, err := MkdirAll(cwd, parentSpec)
	if err != nil {
		return nil, err
	}
	dir, _ := parent.Directory()
	if overwrite {
		err = dir.Set(name, n)
	} else {
		err = dir.Put(name, n)
	}
	if err != nil {
		return nil, &PathError{Op: "create", Path: parent.Child(name, nil).full, Err: err}
	}
	return parent.Child(name, n), nil
}

// WriteFile stores data as a read-only file at spec, creating parents.
func WriteFile(cwd *Path, spec string, data []byte) (*Path, error) {
	return place(cwd, spec, NewFile(data), false)
}

// Graft inserts an existing node at spec, creating parents.
func Graft(cwd *Path, spec string, n Node) (*Path, error) {
	return place(cwd, spec, n, false)
}

// Link creates (or replaces) a symlink at spec pointing at target.
func Link(cwd *Path, spec, target string) (*Path, error) {
	return place(cwd, spec, NewSymlink(target), true)
}

// ReadFile resolves spec and returns the file content.
func ReadFile(cwd *Path, spec string) ([]byte, error) {
	p, err := Lookup(cwd, spec)
	if err != nil {
		return nil, err
	}
	return ReadPath(p)
}

// ReadPath returns the content of the file at p.
func ReadPath(p *Path) ([]byte, error) {
	f, ok := p.File()
	if !ok {
		return nil, pathErr("read", p.full, ErrNotFile)
	}
	data, err := f.Content()
	if err != nil {
		return nil, pathErr("read", p.full, err)
	}
	return data, nil
}

// FillPath delivers the content of the pending file at p.
func FillPath(p *Path, data []byte) error {
	f, ok := p.File()
	if !ok {
		return pathErr("fill", p.full, ErrNotFile)
	}
	if err := f.Fill(data); err != nil {
		return pathErr("fill", p.full, err)
	}
	return nil
}

// WritePath replaces the content of the writable file at p.
func WritePath(p *Path, data []byte) error {
	f, ok := p.File()
	if !ok {
		return pathErr("write", p.full, ErrNotFile)
	}
	if err := f.Write(data); err != nil {
		return pathErr("write", p.full, err)
	}
	return nil
}

// WalkTree visits p and every node below it depth-first in name order.
// Symlinks are reported but not followed. Returning SkipDir from fn for a
// directory skips its children.
func WalkTree(p *Path, fn func(*Path) error) error {
	if err := fn(p); err != nil {
		if errors.Is(err, SkipDir) {
			return nil
		}
		return err
	}
	dir, ok := p.Directory()
	if !ok {
		return nil
	}
	for name, child := range dir.Entries() {
		if err := WalkTree(p.Child(name, child), fn); err != nil {
			return err
		}
	}
	return nil
}

// SkipDir is returned by WalkTree callbacks to skip a directory's children.
var SkipDir = errors.New("skip this directory")

// Glob returns every path below root whose full path matches pattern.
// Patterns use doublestar syntax ("**/package.json") and are matched
// against the path with its leading slash removed.
func Glob(root *Path, pattern string) ([]*Path, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	var matches []*Path
	err := WalkTree(root, func(p *Path) error {
		if p == root {
			return nil
		}
		rel := p.full[len(root.full):]
		if rel[0] == '/' {
			rel = rel[1:]
		}
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Clone returns a deep copy of dir. File contents are shared, since loaded
// read-only content is never mutated in place; writable files are copied.
func Clone(dir *Directory) *Directory {
	out := NewDirectory()
	for name, n := range dir.Entries() {
		out.entries[name] = cloneNode(n)
	}
	return out
}

func cloneNode(n Node) Node {
	switch v := n.(type) {
	case *Directory:
		return Clone(v)
	case *File:
		c := *v
		if v.writable && v.data != nil {
			c.data = append([]byte(nil), v.data...)
		}
		return &c
	case *Symlink:
		return NewSymlink(v.target)
	default:
		return n
	}
}
