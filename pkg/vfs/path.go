// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"iter"
	"strings"
)

// Path is the result of a traversal: a node plus the location it was
// reached at. Paths are immutable values; the root Path has no parent.
type Path struct {
	node   Node
	full   string
	name   string
	parent *Path
}

// NewRoot returns the root Path of a directory tree.
func NewRoot(root *Directory) *Path {
	return &Path{node: root, full: "/"}
}

// Node returns the node this path refers to.
func (p *Path) Node() Node { return p.node }

// String returns the full escaped path string.
func (p *Path) String() string { return p.full }

// Name returns the entry name the node was found under ("" for the root).
func (p *Path) Name() string { return p.name }

// Parent returns the parent path, or nil at the root.
func (p *Path) Parent() *Path { return p.parent }

// IsRoot reports whether p is the root of its tree.
func (p *Path) IsRoot() bool { return p.parent == nil }

// Root climbs the parent chain to the root path.
func (p *Path) Root() *Path {
	r := p
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Directory returns the node as a directory.
func (p *Path) Directory() (*Directory, bool) {
	d, ok := p.node.(*Directory)
	return d, ok
}

// File returns the node as a file.
func (p *Path) File() (*File, bool) {
	f, ok := p.node.(*File)
	return f, ok
}

// Symlink returns the node as a symlink.
func (p *Path) Symlink() (*Symlink, bool) {
	s, ok := p.node.(*Symlink)
	return s, ok
}

// Child builds the path of the entry name below p. It does not look the
// entry up; node may be any value the caller already holds.
func (p *Path) Child(name string, node Node) *Path {
	full := "/" + escapeName(name)
	if !p.IsRoot() {
		full = p.full + full
	}
	return &Path{node: node, full: full, name: name, parent: p}
}

// Lookup returns the child path called name, or nil when p is not a
// directory or has no such entry. Symlinks are not followed.
func (p *Path) Lookup(name string) *Path {
	d, ok := p.Directory()
	if !ok {
		return nil
	}
	n := d.Get(name)
	if n == nil {
		return nil
	}
	return p.Child(name, n)
}

// Ancestors iterates over p and each parent up to the root.
func (p *Path) Ancestors() iter.Seq[*Path] {
	return func(yield func(*Path) bool) {
		for cur := p; cur != nil; cur = cur.parent {
			if !yield(cur) {
				return
			}
		}
	}
}

// IsAbs reports whether spec is resolved from the root.
func IsAbs(spec string) bool {
	return strings.HasPrefix(spec, "/")
}

// DecodeSpecifier returns the components of spec. The sequence is lazy and
// may be iterated any number of times. Empty and "." components are
// dropped; a backslash makes the next character literal.
func DecodeSpecifier(spec string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var sb strings.Builder
		escaped := false
		flush := func() bool {
			comp := sb.String()
			sb.Reset()
			if comp == "" || comp == "." {
				return true
			}
			return yield(comp)
		}
		for i := 0; i < len(spec); i++ {
			c := spec[i]
			switch {
			case escaped:
				sb.WriteByte(c)
				escaped = false
			case c == '\\':
				escaped = true
			case c == '/':
				if !flush() {
					return
				}
			default:
				sb.WriteByte(c)
			}
		}
		if escaped {
			sb.WriteByte('\\')
		}
		flush()
	}
}

// ResolveRoot returns the path traversal of spec starts from: the root for
// absolute specifiers and cwd otherwise.
func ResolveRoot(cwd *Path, spec string) *Path {
	if IsAbs(spec) {
		return cwd.Root()
	}
	return cwd
}

// Join joins specifier fragments with "/" without decoding them.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}
