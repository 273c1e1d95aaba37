// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/invowk/modfs/internal/depgraph"
	"github.com/invowk/modfs/internal/metrics"
	"github.com/invowk/modfs/pkg/manifest"
	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// Fetcher returns the file tree of a package version. Registry lookup,
	// version selection, and archive decoding all live behind it.
	Fetcher interface {
		Fetch(ctx context.Context, name, constraint string) (*vfs.FileSystem, error)
	}

	// FetchFunc adapts a function to Fetcher.
	FetchFunc func(ctx context.Context, name, constraint string) (*vfs.FileSystem, error)

	// Package describes one dependency directory entry created by a run.
	Package struct {
		// ID is the qualified identifier, e.g. "scope+name@^1.0.0".
		ID         string
		Name       string
		Constraint string
		// Location is the full path of the entry.
		Location string
		// Linked is set when the entry is a symlink to a copy owned by
		// another branch.
		Linked bool
	}

	// Report summarizes an install run. It is returned even when the run
	// fails, describing the partial tree.
	Report struct {
		Packages []Package
		// Graph has one node per qualified identifier plus the root package.
		Graph *depgraph.Graph
	}

	fetchResult struct {
		fsys *vfs.FileSystem
		err  error
	}

	run struct {
		opts    options
		fetcher Fetcher

		// mu serializes every read and write of the shared tree, the report,
		// and the ownership maps.
		mu      sync.Mutex
		owners  map[string]string
		grafted map[*vfs.Directory]string
		report  *Report

		group   singleflight.Group
		memoMu  sync.Mutex
		fetched map[string]fetchResult
	}
)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
	return f(ctx, name, constraint)
}

// Install installs the dependencies of the package rooted at at, which
// must belong to fsys. A nil at means the root of fsys.
func Install(ctx context.Context, fsys *vfs.FileSystem, at *vfs.Path, fetcher Fetcher, opts ...Option) (*Report, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if at == nil {
		at = fsys.Root()
	}

	r := &run{
		opts:    o,
		fetcher: fetcher,
		owners:  make(map[string]string),
		grafted: make(map[*vfs.Directory]string),
		report:  &Report{Graph: depgraph.New()},
		fetched: make(map[string]fetchResult),
	}

	o.logger.Debug("install started", "origin", fsys.Origin(), "at", at.String())
	err := r.install(ctx, at, "", nil)

	slices.SortFunc(r.report.Packages, func(a, b Package) int {
		return cmp.Compare(a.Location, b.Location)
	})
	if err != nil {
		return r.report, err
	}
	o.logger.Debug("install finished", "packages", len(r.report.Packages))
	return r.report, nil
}

// install handles one package directory. id is the package's graph node;
// the root passes "" and is named after its manifest. chain holds the
// qualified identifiers of the packages above this one.
func (r *run) install(ctx context.Context, at *vfs.Path, id string, chain []string) error {
	r.mu.Lock()
	m, err := manifest.Read(at, r.opts.manifestName)
	if err != nil {
		r.mu.Unlock()
		if errors.Is(err, vfs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("install %s: %w", at, err)
	}
	if id == "" {
		id = cmp.Or(m.Name, at.String())
	}
	r.report.Graph.AddPackage(id)

	deps := slices.DeleteFunc(m.SortedDependencies(), func(d manifest.Dependency) bool {
		return m.Browser.Disabled(d.Name)
	})
	if len(deps) == 0 {
		r.mu.Unlock()
		return nil
	}
	depsDir, err := vfs.MkdirAll(at, vfs.EscapeName(r.opts.depsDir))
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("install %s: %w", at, err)
	}

	var g errgroup.Group
	if r.opts.concurrency > 0 {
		g.SetLimit(r.opts.concurrency)
	}
	errs := make([]error, len(deps))
	for i, dep := range deps {
		g.Go(func() error {
			errs[i] = r.installDep(ctx, depsDir, id, dep, chain)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (r *run) installDep(ctx context.Context, depsDir *vfs.Path, parent string, dep manifest.Dependency, chain []string) error {
	qid := manifest.QualifiedID(dep.Name, dep.Constraint)
	logger := r.opts.logger.With("package", dep.String())

	r.mu.Lock()
	r.report.Graph.AddDependency(parent, qid)
	reused := depsDir.Lookup(qid) != nil
	r.mu.Unlock()
	if reused {
		r.opts.observer.Grafted(qid, metrics.GraftReuse)
		logger.Debug("reusing installed package", "dir", depsDir.String())
		return nil
	}

	if !r.opts.shared && slices.Contains(chain, qid) {
		return &vfs.PathError{Op: "install", Path: depsDir.Child(qid, nil).String(), Err: vfs.ErrCyclic}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("install %s: %w", dep, err)
	}
	fetched, err := r.fetch(ctx, dep)
	if err != nil {
		return &FetchError{Name: dep.Name, Constraint: dep.Constraint, Err: err}
	}

	p, linked, err := r.graft(depsDir, qid, dep, fetched)
	if err != nil || linked {
		return err
	}
	return r.install(ctx, p, qid, append(slices.Clip(chain), qid))
}

// graft places a fetched package into depsDir and points the bare-name
// alias at it. linked reports that another branch already owns the package
// and p is a symlink to it.
func (r *run) graft(depsDir *vfs.Path, qid string, dep manifest.Dependency, fetched *vfs.FileSystem) (p *vfs.Path, linked bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := vfs.EscapeName(qid)
	if existing := depsDir.Lookup(qid); existing != nil {
		r.opts.observer.Grafted(qid, metrics.GraftReuse)
		return existing, true, nil
	}

	kind := metrics.GraftCopy
	if owner, ok := r.owners[qid]; ok && r.opts.shared {
		if p, err = vfs.Link(depsDir, entry, owner); err != nil {
			return nil, false, err
		}
		kind, linked = metrics.GraftLink, true
	} else {
		root := fetched.RootDirectory()
		if loc, dup := r.grafted[root]; dup {
			return nil, false, &vfs.PathError{Op: "graft", Path: loc, Err: vfs.ErrCyclic}
		}
		if p, err = vfs.Graft(depsDir, entry, root); err != nil {
			return nil, false, err
		}
		r.grafted[root] = p.String()
		if r.opts.shared {
			r.owners[qid] = p.String()
		}
	}

	if _, err := vfs.Link(depsDir, vfs.EscapeName(manifest.NormalizeName(dep.Name)), entry); err != nil {
		return nil, false, err
	}

	r.report.Packages = append(r.report.Packages, Package{
		ID:         qid,
		Name:       dep.Name,
		Constraint: dep.Constraint,
		Location:   p.String(),
		Linked:     linked,
	})
	r.opts.observer.Grafted(qid, kind)
	r.opts.logger.Debug("installed package", "id", qid, "at", p.String(), "kind", kind)
	return p, linked, nil
}

// fetch returns the tree for dep, sharing one fetch per qualified
// identifier across the run unless shared fetches are disabled.
func (r *run) fetch(ctx context.Context, dep manifest.Dependency) (*vfs.FileSystem, error) {
	if !r.opts.shared {
		return r.fetchRemote(ctx, dep)
	}

	// The memo is consulted inside Do: a caller arriving after the owner's
	// call returned must see the completed result, not start a new fetch.
	qid := manifest.QualifiedID(dep.Name, dep.Constraint)
	v, err, _ := r.group.Do(qid, func() (any, error) {
		r.memoMu.Lock()
		res, ok := r.fetched[qid]
		r.memoMu.Unlock()
		if ok {
			return res.fsys, res.err
		}
		fsys, err := r.fetchRemote(ctx, dep)
		r.memoMu.Lock()
		r.fetched[qid] = fetchResult{fsys: fsys, err: err}
		r.memoMu.Unlock()
		return fsys, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*vfs.FileSystem), nil
}

func (r *run) fetchRemote(ctx context.Context, dep manifest.Dependency) (*vfs.FileSystem, error) {
	start := time.Now()
	fsys, err := r.fetcher.Fetch(ctx, dep.Name, dep.Constraint)
	if err == nil && fsys == nil {
		err = errors.New("fetcher returned no file system")
	}
	r.opts.observer.FetchDone(dep.Name, dep.Constraint, time.Since(start), err)
	if err != nil {
		r.opts.logger.Warn("fetch failed", "package", dep.String(), "err", err)
		return nil, err
	}
	r.opts.logger.Debug("fetched package", "package", dep.String(), "origin", fsys.Origin())
	return fsys, nil
}
