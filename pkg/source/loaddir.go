// SPDX-License-Identifier: MPL-2.0

package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/modfs/pkg/vfs"
)

// LoadDir copies the host directory at path into a new FileSystem.
// Symlinks are copied as symlinks with their targets unchanged. Entries
// whose name is listed in skip are left out together with their contents.
func LoadDir(path string, skip ...string) (*vfs.FileSystem, error) {
	fsys := vfs.New("dir:" + path)
	root := fsys.Root()

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if slices.Contains(skip, d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		spec := hostSpecifier(rel)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			_, err = vfs.Link(root, spec, filepath.ToSlash(target))
			return err
		case d.IsDir():
			_, err := vfs.MkdirAll(root, spec)
			return err
		case d.Type().IsRegular():
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			_, err = vfs.WriteFile(root, spec, data)
			return err
		default:
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return fsys, nil
}

// hostSpecifier turns a relative host path into an absolute, escaped vfs
// specifier.
func hostSpecifier(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		parts[i] = vfs.EscapeName(part)
	}
	return "/" + strings.Join(parts, "/")
}
