// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/modfs/internal/metrics"
	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// Evaluator executes a module's content and fills mod.Exports. It may
	// call mod.Require for nested imports.
	Evaluator interface {
		Evaluate(ctx context.Context, content []byte, mod *Module) error
	}

	// EvaluatorFunc adapts a function to Evaluator.
	EvaluatorFunc func(ctx context.Context, content []byte, mod *Module) error

	// Observer receives one event per load request. internal/metrics
	// implements it.
	Observer interface {
		ModuleLoaded(id, outcome string)
	}

	// Loader resolves and evaluates modules against one Cache.
	Loader struct {
		cache    *Cache
		eval     Evaluator
		resolver *resolver
		observer Observer
		logger   *log.Logger
	}

	// Option configures a Loader.
	Option func(*loaderOptions)

	loaderOptions struct {
		resolveOpts []ResolveOption
		observer    Observer
		logger      *log.Logger
	}

	nopObserver struct{}
)

func (nopObserver) ModuleLoaded(string, string) {}

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, content []byte, mod *Module) error {
	return f(ctx, content, mod)
}

// WithResolveOptions passes options to every resolution.
func WithResolveOptions(opts ...ResolveOption) Option {
	return func(o *loaderOptions) {
		o.resolveOpts = append(o.resolveOpts, opts...)
	}
}

// WithObserver registers an observer for load outcomes.
func WithObserver(obs Observer) Option {
	return func(o *loaderOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *loaderOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewLoader creates a Loader. A nil cache starts a fresh one.
func NewLoader(cache *Cache, eval Evaluator, opts ...Option) *Loader {
	o := loaderOptions{
		observer: nopObserver{},
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Loader{
		cache:    cache,
		eval:     eval,
		resolver: newResolver(o.resolveOpts),
		observer: o.observer,
		logger:   o.logger,
	}
}

// Load evaluates the file at entry, or returns its cached module.
func Load(ctx context.Context, cache *Cache, entry *vfs.Path, eval Evaluator) (*Module, error) {
	return NewLoader(cache, eval).Load(ctx, entry)
}

// Cache returns the loader's cache.
func (l *Loader) Cache() *Cache { return l.cache }

// Resolve resolves spec from cwd with the loader's resolve options.
func (l *Loader) Resolve(cwd *vfs.Path, spec string) (*Resolution, error) {
	return l.resolver.resolve(cwd, spec)
}

// Load evaluates the file at entry. A final symlink is followed.
func (l *Loader) Load(ctx context.Context, entry *vfs.Path) (*Module, error) {
	p, err := vfs.ResolveSymlink(entry, l.resolver.opts.maxDepth)
	if err != nil {
		return nil, err
	}
	return l.load(ctx, p)
}

// Require resolves spec from the directory from and loads the result.
func (l *Loader) Require(ctx context.Context, from *vfs.Path, spec string) (*Module, error) {
	// Bare names share one cache entry across packages unless the nearest
	// manifest overrides the name; the override always wins.
	alias := !isPathSpecifier(spec) && !strings.Contains(spec, "/") &&
		!l.resolver.overridden(from, spec)
	if alias {
		if m, ok := l.cache.aliases[spec]; ok {
			l.observer.ModuleLoaded(m.ID, metrics.LoadCached)
			return m, nil
		}
	}

	res, err := l.resolver.resolve(from, spec)
	if err != nil {
		return nil, err
	}
	if res.Stubbed {
		id := "stub:" + spec
		l.observer.ModuleLoaded(id, metrics.LoadStubbed)
		l.logger.Debug("module stubbed", "spec", spec, "from", from.String())
		return &Module{ID: id, Exports: NewExports(), Loaded: true}, nil
	}

	m, err := l.load(ctx, res.Path)
	if err != nil {
		return nil, err
	}
	if alias {
		l.cache.aliases[spec] = m
	}
	return m, nil
}

func (l *Loader) load(ctx context.Context, p *vfs.Path) (*Module, error) {
	id := p.String()
	if m, ok := l.cache.modules[id]; ok {
		l.observer.ModuleLoaded(id, metrics.LoadCached)
		return m, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}

	content, err := vfs.ReadPath(p)
	if err != nil {
		return nil, err
	}

	m := &Module{ID: id, Path: p, Exports: NewExports(), loader: l}
	l.cache.modules[id] = m
	l.logger.Debug("evaluating module", "id", id)

	if err := l.eval.Evaluate(ctx, content, m); err != nil {
		delete(l.cache.modules, id)
		l.observer.ModuleLoaded(id, metrics.LoadFailed)
		return nil, fmt.Errorf("evaluate %s: %w", id, err)
	}
	m.Loaded = true
	l.observer.ModuleLoaded(id, metrics.LoadEvaluated)
	return m, nil
}
