// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// newTestTree builds:
//
//	/pkg/index.js
//	/pkg/lib/util.js
//	/pkg/node_modules/dep/main.js
//	/odd\/name/file.txt
func newTestTree(t *testing.T) *FileSystem {
	t.Helper()

	fsys := New("test")
	root := fsys.Root()
	for _, spec := range []string{
		"/pkg/index.js",
		"/pkg/lib/util.js",
		"/pkg/node_modules/dep/main.js",
		`/odd\/name/file.txt`,
	} {
		if _, err := WriteFile(root, spec, []byte(spec)); err != nil {
			t.Fatalf("WriteFile(%q) error = %v", spec, err)
		}
	}
	return fsys
}

func TestDecodeSpecifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"a/b/c", []string{"a", "b", "c"}},
		{"/a//b/", []string{"a", "b"}},
		{"./a/./b", []string{"a", "b"}},
		{"../a", []string{"..", "a"}},
		{`a\/b/c`, []string{"a/b", "c"}},
		{`a\\/b`, []string{`a\`, "b"}},
		{`trailing\`, []string{`trailing\`}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()

			got := slices.Collect(DecodeSpecifier(tt.spec))
			if !slices.Equal(got, tt.want) {
				t.Errorf("DecodeSpecifier(%q) = %q, want %q", tt.spec, got, tt.want)
			}
		})
	}
}

func TestDecodeSpecifier_Restartable(t *testing.T) {
	t.Parallel()

	seq := DecodeSpecifier("a/b/c")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second iteration = %q, want %q", second, first)
	}

	// Early termination must not break later iterations.
	for range seq {
		break
	}
	if got := slices.Collect(seq); !slices.Equal(got, first) {
		t.Errorf("iteration after break = %q, want %q", got, first)
	}
}

func TestWalk_RoundTrip(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	root := fsys.Root()

	var paths []*Path
	if err := WalkTree(root, func(p *Path) error {
		paths = append(paths, p)
		return nil
	}); err != nil {
		t.Fatalf("WalkTree() error = %v", err)
	}

	for _, p := range paths {
		got, err := Walk(root, p.String())
		if err != nil {
			t.Errorf("Walk(%q) error = %v", p.String(), err)
			continue
		}
		if got.Node() != p.Node() {
			t.Errorf("Walk(%q) returned a different node", p.String())
		}
		if got.String() != p.String() {
			t.Errorf("Walk(%q).String() = %q", p.String(), got.String())
		}
	}
}

func TestWalk_DotDotAtRootIsNoop(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	root := fsys.Root()

	got, err := Walk(root, "../../..")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if !got.IsRoot() {
		t.Errorf("Walk(../../..) = %q, want root", got.String())
	}

	got, err = Walk(root, "../pkg/../../pkg/index.js")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got.String() != "/pkg/index.js" {
		t.Errorf("Walk() = %q, want /pkg/index.js", got.String())
	}
}

func TestWalk_RelativeAndAbsolute(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	lib, err := Walk(fsys.Root(), "/pkg/lib")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	rel, err := Walk(lib, "../index.js")
	if err != nil {
		t.Fatalf("Walk(relative) error = %v", err)
	}
	if rel.String() != "/pkg/index.js" {
		t.Errorf("Walk(relative) = %q", rel.String())
	}

	abs, err := Walk(lib, "/pkg/node_modules/dep/main.js")
	if err != nil {
		t.Fatalf("Walk(absolute) error = %v", err)
	}
	if abs.String() != "/pkg/node_modules/dep/main.js" {
		t.Errorf("Walk(absolute) = %q", abs.String())
	}
}

func TestWalk_Errors(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	root := fsys.Root()

	tests := []struct {
		name string
		spec string
		want error
	}{
		{"missing entry", "/pkg/missing.js", ErrNotFound},
		{"missing parent", "/nope/index.js", ErrNotFound},
		{"descend through file", "/pkg/index.js/child", ErrNotDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Walk(root, tt.spec)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Walk(%q) error = %v, want %v", tt.spec, err, tt.want)
			}
			var pe *PathError
			if !errors.As(err, &pe) || pe.Path == "" {
				t.Errorf("Walk(%q) error %v does not carry a path", tt.spec, err)
			}
		})
	}
}

func TestWalk_EscapedNames(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	p, err := Walk(fsys.Root(), `odd\/name/file.txt`)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if p.Parent().Name() != "odd/name" {
		t.Errorf("parent name = %q, want %q", p.Parent().Name(), "odd/name")
	}
	if p.String() != `/odd\/name/file.txt` {
		t.Errorf("String() = %q", p.String())
	}
}

func TestWalk_IntermediateSymlink(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	root := fsys.Root()
	if _, err := Link(root, "/pkg/node_modules/alias", "dep"); err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	p, err := Walk(root, "/pkg/node_modules/alias/main.js")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if p.String() != "/pkg/node_modules/dep/main.js" {
		t.Errorf("Walk() = %q, want resolved target location", p.String())
	}

	// A final symlink is not followed by Walk but is by Lookup.
	last, err := Walk(root, "/pkg/node_modules/alias")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if last.Node().Kind() != KindSymlink {
		t.Errorf("Walk() final kind = %v, want symlink", last.Node().Kind())
	}
	followed, err := Lookup(root, "/pkg/node_modules/alias")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if followed.Node().Kind() != KindDirectory {
		t.Errorf("Lookup() final kind = %v, want directory", followed.Node().Kind())
	}
}

func TestResolveSymlink_IsLazy(t *testing.T) {
	t.Parallel()

	fsys := New("test")
	root := fsys.Root()
	if _, err := WriteFile(root, "/a/file.txt", []byte("a")); err != nil {
		t.Fatal(err)
	}
	link, err := Link(root, "/current", "a")
	if err != nil {
		t.Fatal(err)
	}

	first, err := ResolveSymlink(link, MaxSymlinkDepth)
	if err != nil {
		t.Fatalf("ResolveSymlink() error = %v", err)
	}
	if first.String() != "/a" {
		t.Fatalf("ResolveSymlink() = %q, want /a", first.String())
	}

	// Replace the target directory; the symlink must see the new node.
	replacement := NewDirectory()
	if err := fsys.RootDirectory().Set("a", replacement); err != nil {
		t.Fatal(err)
	}
	second, err := ResolveSymlink(link, MaxSymlinkDepth)
	if err != nil {
		t.Fatalf("ResolveSymlink() error = %v", err)
	}
	if second.Node() != replacement {
		t.Error("ResolveSymlink() returned a stale node after tree mutation")
	}
}

// buildChain creates /l1 -> /l2 -> ... -> /lN -> /target.
func buildChain(t *testing.T, n int) *Path {
	t.Helper()

	fsys := New("chain")
	root := fsys.Root()
	if _, err := WriteFile(root, "/target", []byte("ok")); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		target := fmt.Sprintf("l%d", i+1)
		if i == n {
			target = "target"
		}
		if _, err := Link(root, fmt.Sprintf("/l%d", i), target); err != nil {
			t.Fatal(err)
		}
	}
	p, err := Walk(root, "/l1")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolveSymlink_DepthBound(t *testing.T) {
	t.Parallel()

	ok := buildChain(t, MaxSymlinkDepth)
	got, err := ResolveSymlink(ok, MaxSymlinkDepth)
	if err != nil {
		t.Fatalf("chain of %d: error = %v", MaxSymlinkDepth, err)
	}
	if got.String() != "/target" {
		t.Errorf("chain of %d resolved to %q", MaxSymlinkDepth, got.String())
	}

	tooLong := buildChain(t, MaxSymlinkDepth+1)
	if _, err := ResolveSymlink(tooLong, MaxSymlinkDepth); !errors.Is(err, ErrCyclic) {
		t.Errorf("chain of %d: error = %v, want ErrCyclic", MaxSymlinkDepth+1, err)
	}
}

func TestResolveSymlink_Cycle(t *testing.T) {
	t.Parallel()

	fsys := New("cycle")
	root := fsys.Root()
	if _, err := Link(root, "/a", "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := Link(root, "/b", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := Lookup(root, "/a"); !errors.Is(err, ErrCyclic) {
		t.Errorf("Lookup() error = %v, want ErrCyclic", err)
	}
	if _, err := Walk(root, "/a/x"); !errors.Is(err, ErrCyclic) {
		t.Errorf("Walk() error = %v, want ErrCyclic", err)
	}
}

func TestResolveSymlink_Dangling(t *testing.T) {
	t.Parallel()

	fsys := New("dangling")
	root := fsys.Root()
	if _, err := Link(root, "/dir/broken", "../missing"); err != nil {
		t.Fatal(err)
	}
	_, err := Lookup(root, "/dir/broken")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() error = %v, want ErrNotFound", err)
	}
}

func TestResolveSymlink_RelativeToParent(t *testing.T) {
	t.Parallel()

	fsys := newTestTree(t)
	root := fsys.Root()
	if _, err := Link(root, "/pkg/lib/up", "../index.js"); err != nil {
		t.Fatal(err)
	}
	p, err := Lookup(root, "/pkg/lib/up")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.String() != "/pkg/index.js" {
		t.Errorf("Lookup() = %q, want /pkg/index.js", p.String())
	}
}

func TestAncestorSearch(t *testing.T) {
	t.Parallel()

	fsys := New("ancestors")
	root := fsys.Root()
	for _, spec := range []string{
		"/node_modules/top/x",
		"/app/node_modules/mid/x",
		"/app/src/deep/file.js",
	} {
		if _, err := WriteFile(root, spec, nil); err != nil {
			t.Fatal(err)
		}
	}
	deep, err := Walk(root, "/app/src/deep")
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for p := range AncestorSearch(deep, "node_modules") {
		got = append(got, p.String())
	}
	want := []string{"/app/node_modules", "/node_modules"}
	if !slices.Equal(got, want) {
		t.Errorf("AncestorSearch() = %q, want %q", got, want)
	}

	// Stopping early must be honored.
	count := 0
	for range AncestorSearch(deep, "node_modules") {
		count++
		break
	}
	if count != 1 {
		t.Errorf("early break yielded %d paths", count)
	}
}
