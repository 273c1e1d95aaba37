// SPDX-License-Identifier: MPL-2.0

package source

import (
	"archive/tar"
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/invowk/modfs/pkg/vfs"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func buildTar(t *testing.T, entries ...tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		typeflag := e.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: typeflag,
			Linkname: e.linkname,
			Mode:     0o644,
			Size:     int64(len(e.body)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%s) error = %v", e.name, err)
		}
		if e.body != "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readString(t *testing.T, root *vfs.Directory, spec string) string {
	t.Helper()

	data, err := vfs.ReadFile(vfs.NewRoot(root), spec)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", spec, err)
	}
	return string(data)
}

func TestDecodeArchive_Gzip(t *testing.T) {
	t.Parallel()

	data := gzipBytes(t, buildTar(t,
		tarEntry{name: "package/", typeflag: tar.TypeDir},
		tarEntry{name: "package/package.json", body: `{"name":"left-pad"}`},
		tarEntry{name: "package/lib/index.js", body: "module.exports = 1"},
	))

	root, err := DecodeArchive(data, WithStripComponents(1))
	if err != nil {
		t.Fatalf("DecodeArchive() error = %v", err)
	}
	if got := readString(t, root, "/lib/index.js"); got != "module.exports = 1" {
		t.Errorf("/lib/index.js = %q", got)
	}
	if got := readString(t, root, "/package.json"); got != `{"name":"left-pad"}` {
		t.Errorf("/package.json = %q", got)
	}
}

func TestDecodeArchive_PlainTarNoStrip(t *testing.T) {
	t.Parallel()

	root, err := DecodeArchive(buildTar(t, tarEntry{name: "a/b.txt", body: "b"}))
	if err != nil {
		t.Fatalf("DecodeArchive() error = %v", err)
	}
	if got := readString(t, root, "/a/b.txt"); got != "b" {
		t.Errorf("/a/b.txt = %q", got)
	}
}

func TestDecodeArchive_Links(t *testing.T) {
	t.Parallel()

	data := buildTar(t,
		tarEntry{name: "package/real.js", body: "real"},
		tarEntry{name: "package/alias.js", typeflag: tar.TypeSymlink, linkname: "real.js"},
		tarEntry{name: "package/hard.js", typeflag: tar.TypeLink, linkname: "package/real.js"},
	)

	root, err := DecodeArchive(data, WithStripComponents(1))
	if err != nil {
		t.Fatalf("DecodeArchive() error = %v", err)
	}
	rootPath := vfs.NewRoot(root)

	alias, err := vfs.Walk(rootPath, "/alias.js")
	if err != nil {
		t.Fatal(err)
	}
	link, ok := alias.Symlink()
	if !ok || link.Target() != "real.js" {
		t.Errorf("/alias.js is not a symlink to real.js")
	}
	if got := readString(t, root, "/alias.js"); got != "real" {
		t.Errorf("/alias.js content = %q", got)
	}
	if got := readString(t, root, "/hard.js"); got != "real" {
		t.Errorf("/hard.js content = %q", got)
	}
}

func TestDecodeArchive_HardLinkSurvivesGraft(t *testing.T) {
	t.Parallel()

	data := buildTar(t,
		tarEntry{name: "package/lib/real.js", body: "real"},
		tarEntry{name: "package/hard.js", typeflag: tar.TypeLink, linkname: "package/lib/real.js"},
	)
	pkg, err := DecodeArchive(data, WithStripComponents(1))
	if err != nil {
		t.Fatalf("DecodeArchive() error = %v", err)
	}

	fsys := vfs.New("graft")
	if _, err := vfs.Graft(fsys.Root(), "/node_modules/x@1", pkg); err != nil {
		t.Fatalf("Graft() error = %v", err)
	}
	hard, err := vfs.Walk(fsys.Root(), "/node_modules/x@1/hard.js")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if _, ok := hard.File(); !ok {
		t.Fatalf("hard.js is %T, want a file", hard.Node())
	}
	got, err := vfs.ReadFile(fsys.Root(), "/node_modules/x@1/hard.js")
	if err != nil || string(got) != "real" {
		t.Errorf("ReadFile(hard.js) = %q, %v, want %q", got, err, "real")
	}
}

func TestDecodeArchive_HardLinkMissingTarget(t *testing.T) {
	t.Parallel()

	data := buildTar(t,
		tarEntry{name: "package/hard.js", typeflag: tar.TypeLink, linkname: "package/later.js"},
		tarEntry{name: "package/later.js", body: "late"},
	)
	if _, err := DecodeArchive(data, WithStripComponents(1)); !errors.Is(err, ErrFormat) {
		t.Errorf("DecodeArchive() error = %v, want ErrFormat", err)
	}
}

func TestDecodeArchive_DuplicateEntryReplaces(t *testing.T) {
	t.Parallel()

	root, err := DecodeArchive(buildTar(t,
		tarEntry{name: "x.js", body: "first"},
		tarEntry{name: "x.js", body: "second"},
	))
	if err != nil {
		t.Fatalf("DecodeArchive() error = %v", err)
	}
	if got := readString(t, root, "/x.js"); got != "second" {
		t.Errorf("/x.js = %q, want second", got)
	}
}

func TestDecodeArchive_Malformed(t *testing.T) {
	t.Parallel()

	valid := buildTar(t, tarEntry{name: "package/index.js", body: "x"})
	corrupt := bytes.Clone(valid)
	// Size field of the first header.
	copy(corrupt[124:136], "zzzzzzzzzzz\x00")

	tests := []struct {
		name string
		data []byte
	}{
		{"corrupt size", corrupt},
		{"truncated gzip", gzipBytes(t, valid)[:12]},
		{"truncated body", valid[:600]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := DecodeArchive(tt.data); !errors.Is(err, ErrFormat) {
				t.Errorf("DecodeArchive() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestDecodeArchive_MaxSize(t *testing.T) {
	t.Parallel()

	data := buildTar(t, tarEntry{name: "big.bin", body: "0123456789"})
	if _, err := DecodeArchive(data, WithMaxArchiveSize(5)); !errors.Is(err, ErrFormat) {
		t.Errorf("DecodeArchive() error = %v, want ErrFormat", err)
	}
}

func TestEntrySpecifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		strip  int
		want   string
		wantOK bool
	}{
		{"package/index.js", 1, "/index.js", true},
		{"./package/lib/a.js", 1, "/lib/a.js", true},
		{"package/", 1, "", false},
		{`a\b/c`, 0, `/a\\b/c`, true},
	}
	for _, tt := range tests {
		got, ok := entrySpecifier(tt.name, tt.strip)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("entrySpecifier(%q, %d) = %q, %v; want %q, %v", tt.name, tt.strip, got, ok, tt.want, tt.wantOK)
		}
	}
}
