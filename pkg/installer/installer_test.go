// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/invowk/modfs/internal/testutil"
	"github.com/invowk/modfs/pkg/manifest"
	"github.com/invowk/modfs/pkg/vfs"
)

// fakeRegistry serves packages keyed by "name@constraint". Every fetch
// builds a fresh tree holding the registered manifest and an index.js.
type fakeRegistry struct {
	mu        sync.Mutex
	manifests map[string]string
	failures  map[string]error
	calls     map[string]int
}

func newFakeRegistry(manifests map[string]string) *fakeRegistry {
	return &fakeRegistry{
		manifests: manifests,
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeRegistry) Fetch(_ context.Context, name, constraint string) (*vfs.FileSystem, error) {
	key := name + "@" + constraint
	f.mu.Lock()
	f.calls[key]++
	m, ok := f.manifests[key]
	failure := f.failures[key]
	f.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, vfs.ErrNotFound)
	}
	fsys := vfs.New("fake:" + key)
	if _, err := vfs.WriteFile(fsys.Root(), manifest.FileName, []byte(m)); err != nil {
		return nil, err
	}
	if _, err := vfs.WriteFile(fsys.Root(), "index.js", []byte("// "+key)); err != nil {
		return nil, err
	}
	return fsys, nil
}

func (f *fakeRegistry) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newApp(t *testing.T, manifestJSON string) *vfs.FileSystem {
	t.Helper()
	fsys := vfs.New("app")
	if _, err := vfs.WriteFile(fsys.Root(), manifest.FileName, []byte(manifestJSON)); err != nil {
		t.Fatal(err)
	}
	return fsys
}

func TestInstall_NoManifest(t *testing.T) {
	t.Parallel()

	fsys := vfs.New("empty")
	report, err := Install(context.Background(), fsys, nil, newFakeRegistry(nil))
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(report.Packages) != 0 {
		t.Errorf("Packages = %v, want none", report.Packages)
	}
}

func TestInstall_NoDependencies(t *testing.T) {
	t.Parallel()

	fsys := newApp(t, `{"name": "app"}`)
	if _, err := Install(context.Background(), fsys, nil, newFakeRegistry(nil)); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if fsys.RootDirectory().Get(manifest.DepsDirName) != nil {
		t.Error("dependency directory created for a package without dependencies")
	}
}

func TestInstall_Transitive(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"a@^1.0.0":       `{"name": "a", "dependencies": {"@acme/b": "~2.0.0"}}`,
		"@acme/b@~2.0.0": `{"name": "@acme/b"}`,
	})
	fsys := newApp(t, `{"name": "app", "dependencies": {"a": "^1.0.0"}}`)

	report, err := Install(context.Background(), fsys, nil, reg)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if got := testutil.ReadString(t, fsys, "/node_modules/a@^1.0.0/node_modules/acme+b@~2.0.0/index.js"); got != "// @acme/b@~2.0.0" {
		t.Errorf("nested index.js = %q", got)
	}
	// Aliases resolve through symlinks.
	if got := testutil.ReadString(t, fsys, "/node_modules/a/node_modules/acme+b/index.js"); got != "// @acme/b@~2.0.0" {
		t.Errorf("aliased index.js = %q", got)
	}

	alias, err := vfs.Walk(fsys.Root(), "/node_modules/a")
	if err != nil {
		t.Fatal(err)
	}
	if link, ok := alias.Symlink(); !ok || link.Target() != "a@^1.0.0" {
		t.Errorf("alias = %v, want symlink to a@^1.0.0", alias.Node())
	}

	if len(report.Packages) != 2 {
		t.Fatalf("Packages = %+v, want 2", report.Packages)
	}
	if report.Packages[0].Location != "/node_modules/a@^1.0.0" {
		t.Errorf("Packages[0].Location = %q", report.Packages[0].Location)
	}
	order, err := report.Graph.InstallOrder()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"acme+b@~2.0.0", "a@^1.0.0", "app"}; fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("InstallOrder() = %v, want %v", order, want)
	}
}

func TestInstall_SameNameTwoConstraints(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"a@^1.0.0": `{"name": "a", "version": "1.0.0"}`,
		"a@^2.0.0": `{"name": "a", "version": "2.0.0"}`,
	})
	fsys := newApp(t, `{"name": "app", "dependencies": {"a": "^1.0.0"}}`)
	if _, err := Install(context.Background(), fsys, nil, reg); err != nil {
		t.Fatal(err)
	}

	root := fsys.RootDirectory()
	if err := root.Set(manifest.FileName, vfs.NewFile([]byte(`{"name": "app", "dependencies": {"a": "^2.0.0"}}`))); err != nil {
		t.Fatal(err)
	}
	if _, err := Install(context.Background(), fsys, nil, reg); err != nil {
		t.Fatal(err)
	}

	deps, err := vfs.Lookup(fsys.Root(), "/node_modules")
	if err != nil {
		t.Fatal(err)
	}
	dir, _ := deps.Directory()
	names := dir.Names()
	if want := []string{"a", "a@^1.0.0", "a@^2.0.0"}; fmt.Sprint(names) != fmt.Sprint(want) {
		t.Fatalf("node_modules = %v, want %v", names, want)
	}
	if got := testutil.ReadString(t, fsys, "/node_modules/a/index.js"); got != "// a@^2.0.0" {
		t.Errorf("alias resolves to %q, want the last installed constraint", got)
	}
}

func TestInstall_ReusesExistingEntry(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{"a@1.0.0": `{"name": "a"}`})
	fsys := newApp(t, `{"dependencies": {"a": "1.0.0"}}`)
	for range 2 {
		if _, err := Install(context.Background(), fsys, nil, reg); err != nil {
			t.Fatal(err)
		}
	}
	if n := reg.callCount("a@1.0.0"); n != 1 {
		t.Errorf("fetch count = %d, want 1", n)
	}
}

func TestInstall_SharedFetchAcrossBranches(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"x@^1": `{"name": "x", "dependencies": {"z": "^1"}}`,
		"y@^1": `{"name": "y", "dependencies": {"z": "^1"}}`,
		"z@^1": `{"name": "z"}`,
	})
	fsys := newApp(t, `{"name": "app", "dependencies": {"x": "^1", "y": "^1"}}`)

	report, err := Install(context.Background(), fsys, nil, reg)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if n := reg.callCount("z@^1"); n != 1 {
		t.Errorf("z fetched %d times, want 1", n)
	}

	var copies, links int
	for _, p := range report.Packages {
		if p.ID != "z@^1" {
			continue
		}
		if p.Linked {
			links++
		} else {
			copies++
		}
	}
	if copies != 1 || links != 1 {
		t.Errorf("z copies = %d, links = %d; want 1 and 1", copies, links)
	}

	for _, spec := range []string{"/node_modules/x/node_modules/z/index.js", "/node_modules/y/node_modules/z/index.js"} {
		if got := testutil.ReadString(t, fsys, spec); got != "// z@^1" {
			t.Errorf("ReadFile(%q) = %q", spec, got)
		}
	}
}

func TestInstall_SiblingFetchesOverlap(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"a@^1": `{"name": "a"}`,
		"b@^1": `{"name": "b"}`,
		"c@^1": `{"name": "c"}`,
	})
	const siblings = 3
	var (
		mu      sync.Mutex
		entered int
		ready   = make(chan struct{})
	)
	// Every fetch blocks until all siblings are inside Fetch, so the install
	// only completes when the fetches run at the same time.
	barrier := FetchFunc(func(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
		mu.Lock()
		entered++
		if entered == siblings {
			close(ready)
		}
		mu.Unlock()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			return nil, errors.New("sibling fetches were not started together")
		}
		return reg.Fetch(ctx, name, constraint)
	})

	fsys := newApp(t, `{"name": "app", "dependencies": {"a": "^1", "b": "^1", "c": "^1"}}`)
	report, err := Install(context.Background(), fsys, nil, barrier)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(report.Packages) != siblings {
		t.Errorf("len(Packages) = %d, want %d", len(report.Packages), siblings)
	}
}

func TestInstall_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"a@^1": `{"name": "a"}`,
		"b@^1": `{"name": "b"}`,
		"c@^1": `{"name": "c"}`,
		"d@^1": `{"name": "d"}`,
	})
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	tracking := FetchFunc(func(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return reg.Fetch(ctx, name, constraint)
	})

	fsys := newApp(t, `{"name": "app", "dependencies": {"a": "^1", "b": "^1", "c": "^1", "d": "^1"}}`)
	if _, err := Install(context.Background(), fsys, nil, tracking, WithConcurrency(1)); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if peak != 1 {
		t.Errorf("peak concurrent fetches = %d, want 1", peak)
	}
}

func TestRunFetch_ConcurrentCallersShareOneFetch(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{"z@^1": `{"name": "z"}`})
	r := &run{
		opts:    defaultOptions(),
		fetcher: reg,
		fetched: make(map[string]fetchResult),
	}
	dep := manifest.Dependency{Name: "z", Constraint: "^1"}

	const callers = 32
	start := make(chan struct{})
	results := make([]*vfs.FileSystem, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() {
			<-start
			fsys, err := r.fetch(context.Background(), dep)
			if err != nil {
				t.Errorf("fetch() error = %v", err)
			}
			results[i] = fsys
		})
	}
	close(start)
	wg.Wait()

	if n := reg.callCount("z@^1"); n != 1 {
		t.Errorf("z fetched %d times, want 1", n)
	}
	for i, fsys := range results {
		if fsys != results[0] {
			t.Errorf("caller %d got a different tree", i)
		}
	}
}

func TestInstall_CyclicGraphTerminates(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"a@^1": `{"name": "a", "dependencies": {"b": "^1"}}`,
		"b@^1": `{"name": "b", "dependencies": {"a": "^1"}}`,
	})
	fsys := newApp(t, `{"name": "app", "dependencies": {"a": "^1"}}`)

	done := make(chan error, 1)
	go func() {
		_, err := Install(context.Background(), fsys, nil, reg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Install() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Install() did not terminate on a cyclic graph")
	}

	if got := testutil.ReadString(t, fsys, "/node_modules/a/node_modules/b/node_modules/a/index.js"); got != "// a@^1" {
		t.Errorf("cyclic alias resolves to %q", got)
	}
}

func TestInstall_CyclicWithoutSharedFetches(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"a@^1": `{"name": "a", "dependencies": {"b": "^1"}}`,
		"b@^1": `{"name": "b", "dependencies": {"a": "^1"}}`,
	})
	fsys := newApp(t, `{"name": "app", "dependencies": {"a": "^1"}}`)

	_, err := Install(context.Background(), fsys, nil, reg, WithoutSharedFetches())
	if !errors.Is(err, vfs.ErrCyclic) {
		t.Errorf("Install() error = %v, want ErrCyclic", err)
	}
}

func TestInstall_FetchFailureLeavesSiblings(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{
		"good@1.0.0": `{"name": "good"}`,
	})
	reg.failures["bad@1.0.0"] = errors.New("registry unavailable")
	fsys := newApp(t, `{"dependencies": {"good": "1.0.0", "bad": "1.0.0"}}`)

	report, err := Install(context.Background(), fsys, nil, reg)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Install() error = %v, want ErrFetchFailed", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Name != "bad" || fetchErr.Constraint != "1.0.0" {
		t.Errorf("FetchError = %+v", fetchErr)
	}
	if got := testutil.ReadString(t, fsys, "/node_modules/good/index.js"); got != "// good@1.0.0" {
		t.Errorf("sibling not installed: %q", got)
	}
	if len(report.Packages) != 1 {
		t.Errorf("partial report Packages = %+v, want 1", report.Packages)
	}
}

func TestInstall_InvalidManifest(t *testing.T) {
	t.Parallel()

	fsys := newApp(t, `{"dependencies": ["a"]}`)
	_, err := Install(context.Background(), fsys, nil, newFakeRegistry(nil))
	if !errors.Is(err, manifest.ErrInvalid) {
		t.Errorf("Install() error = %v, want manifest.ErrInvalid", err)
	}

	reg := newFakeRegistry(map[string]string{"broken@1": `{"name": 7}`})
	fsys = newApp(t, `{"dependencies": {"broken": "1"}}`)
	if _, err := Install(context.Background(), fsys, nil, reg); !errors.Is(err, manifest.ErrInvalid) {
		t.Errorf("Install(nested invalid) error = %v, want manifest.ErrInvalid", err)
	}
}

func TestInstall_BrowserDisabledDependency(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{"keep@1": `{}`})
	fsys := newApp(t, `{"dependencies": {"keep": "1", "native": "1"}, "browser": {"native": false}}`)

	if _, err := Install(context.Background(), fsys, nil, reg); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if n := reg.callCount("native@1"); n != 0 {
		t.Errorf("disabled dependency fetched %d times", n)
	}
}

func TestInstall_DepsDirIsFile(t *testing.T) {
	t.Parallel()

	fsys := newApp(t, `{"dependencies": {"a": "1"}}`)
	if _, err := vfs.WriteFile(fsys.Root(), manifest.DepsDirName, nil); err != nil {
		t.Fatal(err)
	}
	_, err := Install(context.Background(), fsys, nil, newFakeRegistry(nil))
	if !errors.Is(err, vfs.ErrNotDir) {
		t.Errorf("Install() error = %v, want ErrNotDir", err)
	}
}

func TestInstall_CanceledContext(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{"a@1": `{}`})
	fsys := newApp(t, `{"dependencies": {"a": "1"}}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Install(ctx, fsys, nil, reg); !errors.Is(err, context.Canceled) {
		t.Errorf("Install() error = %v, want context.Canceled", err)
	}
	if n := reg.callCount("a@1"); n != 0 {
		t.Errorf("fetch issued after cancellation")
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	fetches int
	kinds   map[string]int
}

func (o *recordingObserver) FetchDone(string, string, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches++
}

func (o *recordingObserver) Grafted(_, kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds[kind]++
}

func TestInstall_OptionsAndObserver(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry(map[string]string{"a@1": `{}`, "b@1": `{}`})
	fsys := vfs.New("custom")
	if _, err := vfs.WriteFile(fsys.Root(), "/app/mod.json", []byte(`{"dependencies": {"a": "1", "b": "1"}}`)); err != nil {
		t.Fatal(err)
	}
	at, err := vfs.Lookup(fsys.Root(), "/app")
	if err != nil {
		t.Fatal(err)
	}

	obs := &recordingObserver{kinds: map[string]int{}}
	_, err = Install(context.Background(), fsys, at, reg,
		WithManifestName("mod.json"),
		WithDepsDir("deps"),
		WithConcurrency(1),
		WithObserver(obs),
	)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := testutil.ReadString(t, fsys, "/app/deps/b/index.js"); got != "// b@1" {
		t.Errorf("ReadFile() = %q", got)
	}
	if obs.fetches != 2 || obs.kinds["graft"] != 2 {
		t.Errorf("observer saw fetches=%d kinds=%v", obs.fetches, obs.kinds)
	}
}
