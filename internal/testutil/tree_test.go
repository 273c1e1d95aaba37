// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/modfs/pkg/vfs"
)

func TestNewTree(t *testing.T) {
	t.Parallel()

	fsys := NewTree(t,
		map[string]string{"/a/b.txt": "b", "/empty/": ""},
		map[string]string{"/link": "a/b.txt"},
	)
	if got := ReadString(t, fsys, "/link"); got != "b" {
		t.Errorf("ReadString(/link) = %q", got)
	}
	if _, ok := MustLookup(t, fsys, "/empty").Directory(); !ok {
		t.Error("/empty should be a directory")
	}
	if _, err := vfs.Walk(fsys.Root(), "/missing"); err == nil {
		t.Error("unexpected entry")
	}
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := WriteFiles(t, t.TempDir(), map[string]string{"nested/dir/file.txt": "content"})
	data, err := os.ReadFile(filepath.Join(dir, "nested", "dir", "file.txt"))
	if err != nil || string(data) != "content" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
}
