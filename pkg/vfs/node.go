// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"iter"
	"maps"
	"slices"
	"strings"
)

const (
	// KindDirectory identifies a *Directory node.
	KindDirectory NodeKind = iota + 1
	// KindFile identifies a *File node.
	KindFile
	// KindSymlink identifies a *Symlink node.
	KindSymlink
)

const (
	// FilePending marks a file whose content has not arrived yet.
	FilePending FileState = iota
	// FileLoaded marks a file whose content is available.
	FileLoaded
)

type (
	// NodeKind tags the concrete type of a Node.
	NodeKind int

	// Node is a Directory, File or Symlink. The interface is sealed.
	Node interface {
		Kind() NodeKind
		sealed()
	}

	// Directory maps unique names to child nodes. A directory owns its
	// children; the same node must not be stored under two directories.
	Directory struct {
		entries map[string]Node
	}

	// FileState is the load state of a File.
	FileState int

	// File holds opaque content. A file is either pending (content not yet
	// delivered) or loaded. Mutability is a capability flag.
	File struct {
		state    FileState
		data     []byte
		size     int64
		writable bool
	}

	// Symlink stores a target specifier. It never stores a node reference.
	Symlink struct {
		target string
	}
)

// String returns a human-readable kind name.
func (k NodeKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// String returns a human-readable state name.
func (s FileState) String() string {
	if s == FileLoaded {
		return "loaded"
	}
	return "pending"
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]Node)}
}

// Kind implements Node.
func (d *Directory) Kind() NodeKind { return KindDirectory }

func (d *Directory) sealed() {}

// Get returns the entry called name, or nil if there is none.
func (d *Directory) Get(name string) Node {
	return d.entries[name]
}

// Put inserts n under name. It fails with ErrExists if the name is taken.
func (d *Directory) Put(name string, n Node) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, ok := d.entries[name]; ok {
		return pathErr("put", escapeName(name), ErrExists)
	}
	d.entries[name] = n
	return nil
}

// Set inserts n under name, replacing any existing entry.
func (d *Directory) Set(name string, n Node) error {
	if err := validateName(name); err != nil {
		return err
	}
	d.entries[name] = n
	return nil
}

// Remove deletes the entry called name and reports whether it existed.
func (d *Directory) Remove(name string) bool {
	if _, ok := d.entries[name]; !ok {
		return false
	}
	delete(d.entries, name)
	return true
}

// Len returns the number of entries.
func (d *Directory) Len() int { return len(d.entries) }

// Names returns the entry names in sorted order.
func (d *Directory) Names() []string {
	return slices.Sorted(maps.Keys(d.entries))
}

// Entries iterates over the entries in name order.
func (d *Directory) Entries() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		for _, name := range d.Names() {
			if !yield(name, d.entries[name]) {
				return
			}
		}
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return pathErr("put", name, ErrInvalidName)
	}
	return nil
}

// NewFile creates a loaded, read-only file.
func NewFile(data []byte) *File {
	return &File{state: FileLoaded, data: data, size: int64(len(data))}
}

// NewMutableFile creates a loaded file whose content may be replaced with Write.
func NewMutableFile(data []byte) *File {
	f := NewFile(data)
	f.writable = true
	return f
}

// NewPendingFile creates a file whose content will be delivered later via
// Fill. size is the advertised size, or -1 when unknown.
func NewPendingFile(size int64) *File {
	return &File{state: FilePending, size: size}
}

// Kind implements Node.
func (f *File) Kind() NodeKind { return KindFile }

func (f *File) sealed() {}

// State reports whether the content is available.
func (f *File) State() FileState { return f.state }

// Writable reports whether Write is permitted.
func (f *File) Writable() bool { return f.writable }

// Size returns the content length, or the advertised size while pending.
func (f *File) Size() int64 { return f.size }

// Content returns the file bytes. It fails with ErrNotSync while the file
// is pending. The returned slice must not be modified.
//
// File methods return bare sentinels since a node does not know where it
// is mounted; ReadPath, FillPath and WritePath add the path.
func (f *File) Content() ([]byte, error) {
	if f.state != FileLoaded {
		return nil, ErrNotSync
	}
	return f.data, nil
}

// Fill delivers the content of a pending file.
func (f *File) Fill(data []byte) error {
	if f.state == FileLoaded {
		return ErrExists
	}
	f.data = data
	f.size = int64(len(data))
	f.state = FileLoaded
	return nil
}

// Write replaces the content of a writable file.
func (f *File) Write(data []byte) error {
	if !f.writable {
		return ErrReadOnly
	}
	f.data = data
	f.size = int64(len(data))
	f.state = FileLoaded
	return nil
}

// NewSymlink creates a symlink pointing at target.
func NewSymlink(target string) *Symlink {
	return &Symlink{target: target}
}

// Kind implements Node.
func (s *Symlink) Kind() NodeKind { return KindSymlink }

func (s *Symlink) sealed() {}

// Target returns the stored specifier.
func (s *Symlink) Target() string { return s.target }

// EscapeName escapes a single entry name so it can be embedded in a
// specifier without being split.
func EscapeName(name string) string { return escapeName(name) }

func escapeName(name string) string {
	if !strings.ContainsAny(name, `/\`) {
		return name
	}
	var sb strings.Builder
	for _, r := range name {
		if r == '/' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
