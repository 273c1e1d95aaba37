// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"strings"
	"testing"

	"github.com/invowk/modfs/pkg/vfs"
)

// NewTree creates an in-memory tree from files (path -> content) and
// symlinks (path -> target). A path ending in "/" creates an empty directory.
func NewTree(t testing.TB, files, links map[string]string) *vfs.FileSystem {
	t.Helper()
	fsys := vfs.New("test")
	root := fsys.Root()
	for p, content := range files {
		var err error
		if strings.HasSuffix(p, "/") {
			_, err = vfs.MkdirAll(root, p)
		} else {
			_, err = vfs.WriteFile(root, p, []byte(content))
		}
		if err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
	}
	for p, target := range links {
		if _, err := vfs.Link(root, p, target); err != nil {
			t.Fatalf("link %s: %v", p, err)
		}
	}
	return fsys
}

// MustLookup resolves spec from the root of fsys, following symlinks.
func MustLookup(t testing.TB, fsys *vfs.FileSystem, spec string) *vfs.Path {
	t.Helper()
	p, err := vfs.Lookup(fsys.Root(), spec)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", spec, err)
	}
	return p
}

// ReadString returns the content of the file at spec.
func ReadString(t testing.TB, fsys *vfs.FileSystem, spec string) string {
	t.Helper()
	data, err := vfs.ReadFile(fsys.Root(), spec)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", spec, err)
	}
	return string(data)
}
