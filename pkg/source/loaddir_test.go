// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/modfs/internal/testutil"
	"github.com/invowk/modfs/pkg/vfs"
)

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "package.json"), `{"main":"lib/main.js"}`)
	testutil.MustWriteFile(t, filepath.Join(dir, "lib", "main.js"), "main")
	testutil.MustWriteFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main")
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("lib/main.js", filepath.Join(dir, "entry.js")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	fsys, err := LoadDir(dir, ".git")
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	root := fsys.Root()

	data, err := vfs.ReadFile(root, "/entry.js")
	if err != nil || string(data) != "main" {
		t.Errorf("ReadFile(/entry.js) = %q, %v", data, err)
	}
	link, err := vfs.Walk(root, "/entry.js")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := link.Symlink(); !ok {
		t.Error("/entry.js was not copied as a symlink")
	}
	empty, err := vfs.Walk(root, "/empty")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := empty.Directory(); !ok {
		t.Error("/empty is not a directory")
	}
	if _, err := vfs.Walk(root, "/.git"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("skipped entry present: %v", err)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadDir(missing) error = %v, want not-exist", err)
	}
}

func TestHostSpecifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want string
	}{
		{"a", "/a"},
		{filepath.Join("a", "b.js"), "/a/b.js"},
		{`we\ird`, `/we\\ird`},
	}
	for _, tt := range tests {
		if got := hostSpecifier(tt.rel); got != tt.want {
			t.Errorf("hostSpecifier(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}
