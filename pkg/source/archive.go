// SPDX-License-Identifier: MPL-2.0

package source

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// ArchiveOption configures DecodeArchive.
	ArchiveOption func(*archiveOptions)

	archiveOptions struct {
		strip   int
		maxSize int64
	}
)

// DefaultMaxArchiveSize bounds the decompressed size of one archive (256MB).
const DefaultMaxArchiveSize int64 = 256 << 20

// WithStripComponents drops the first n path components of every entry,
// as with npm tarballs whose entries live below "package/".
func WithStripComponents(n int) ArchiveOption {
	return func(o *archiveOptions) {
		o.strip = n
	}
}

// WithMaxArchiveSize bounds the total decompressed entry size.
func WithMaxArchiveSize(n int64) ArchiveOption {
	return func(o *archiveOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// DecodeArchive turns a tar archive, optionally gzip-compressed, into a
// directory tree. Zero-length entries that carry a link name become
// symlinks; hard links become copies of their already-decoded target, so
// the tree stays valid wherever it is grafted. Every other regular entry
// becomes a file. Malformed headers,
// including negative or unparseable sizes, fail with ErrFormat.
func DecodeArchive(data []byte, opts ...ArchiveOption) (*vfs.Directory, error) {
	o := archiveOptions{maxSize: DefaultMaxArchiveSize}
	for _, opt := range opts {
		opt(&o)
	}

	var r io.Reader = bytes.NewReader(data)
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		defer zr.Close()
		r = zr
	}

	root := vfs.NewDirectory()
	rootPath := vfs.NewRoot(root)
	tr := tar.NewReader(r)
	var total int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		if hdr.Size < 0 {
			return nil, fmt.Errorf("%w: %s: negative size %d", ErrFormat, hdr.Name, hdr.Size)
		}

		spec, ok := entrySpecifier(hdr.Name, o.strip)
		if !ok {
			continue
		}

		switch {
		case hdr.Typeflag == tar.TypeDir:
			_, err = vfs.MkdirAll(rootPath, spec)
		case hdr.Typeflag == tar.TypeLink:
			err = hardLink(rootPath, spec, hdr.Linkname, o.strip)
		case hdr.Size == 0 && hdr.Linkname != "":
			_, err = vfs.Link(rootPath, spec, hdr.Linkname)
		case hdr.Typeflag == tar.TypeReg:
			total += hdr.Size
			if total > o.maxSize {
				return nil, fmt.Errorf("%w: archive exceeds %d bytes", ErrFormat, o.maxSize)
			}
			content, readErr := io.ReadAll(tr)
			if readErr != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrFormat, hdr.Name, readErr)
			}
			err = writeEntry(rootPath, spec, content)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", hdr.Name, err)
		}
	}
	return root, nil
}

// entrySpecifier converts a raw archive path into an escaped vfs specifier
// after stripping components. ok is false for entries stripped entirely.
func entrySpecifier(name string, strip int) (string, bool) {
	var comps []string
	for c := range strings.SplitSeq(name, "/") {
		if c == "" || c == "." {
			continue
		}
		comps = append(comps, vfs.EscapeName(c))
	}
	if len(comps) <= strip {
		return "", false
	}
	return "/" + strings.Join(comps[strip:], "/"), true
}

// hardLink stores a copy of the file at the archive path linkname under
// spec. The target must precede the link in the archive.
func hardLink(root *vfs.Path, spec, linkname string, strip int) error {
	target, ok := entrySpecifier(linkname, strip)
	if !ok {
		return fmt.Errorf("%w: hard link to stripped entry %s", ErrFormat, linkname)
	}
	p, err := vfs.Walk(root, target)
	if err != nil {
		return fmt.Errorf("%w: hard link target %s: %w", ErrFormat, linkname, err)
	}
	content, err := vfs.ReadPath(p)
	if err != nil {
		return fmt.Errorf("%w: hard link target %s: %w", ErrFormat, linkname, err)
	}
	return writeEntry(root, spec, content)
}

// writeEntry stores a file; a later duplicate entry replaces an earlier one.
func writeEntry(root *vfs.Path, spec string, content []byte) error {
	_, err := vfs.WriteFile(root, spec, content)
	if !errors.Is(err, vfs.ErrExists) {
		return err
	}
	p, err := vfs.Walk(root, spec)
	if err != nil {
		return err
	}
	dir, _ := p.Parent().Directory()
	return dir.Set(p.Name(), vfs.NewFile(content))
}
