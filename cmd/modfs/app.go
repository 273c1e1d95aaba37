// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/invowk/modfs/internal/config"
	"github.com/invowk/modfs/internal/evaluator"
	"github.com/invowk/modfs/internal/metrics"
	"github.com/invowk/modfs/pkg/installer"
	"github.com/invowk/modfs/pkg/loader"
	"github.com/invowk/modfs/pkg/source"
	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives the App and
	// delegates through it.
	App struct {
		Config  ConfigProvider
		Sources SourceFactory
		stdout  io.Writer
		stderr  io.Writer

		flags       globalFlags
		colorScheme config.ColorScheme
		registry    *prometheus.Registry
		recorder    *metrics.Recorder
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Sources SourceFactory
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// SourceFactory builds the package source for a project. projectDir is
	// the host directory relative source paths are resolved against.
	SourceFactory func(ctx context.Context, cfg *config.Config, projectDir string, logger *log.Logger) (installer.Fetcher, error)

	globalFlags struct {
		verbose    bool
		configPath string
		metrics    bool
	}

	// session is one loaded and installed project.
	session struct {
		cfg    *config.Config
		logger *log.Logger
		fsys   *vfs.FileSystem
		report *installer.Report
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Sources == nil {
		deps.Sources = NewSource
	}

	registry := prometheus.NewRegistry()
	return &App{
		Config:      deps.Config,
		Sources:     deps.Sources,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		colorScheme: config.ColorSchemeAuto,
		registry:    registry,
		recorder:    metrics.New(registry),
	}, nil
}

// NewSource builds the package source selected by cfg. Remote sources fall
// back to the local registry directory when it exists, so a checked-in
// registry can stand in for packages the remote does not carry.
func NewSource(ctx context.Context, cfg *config.Config, projectDir string, logger *log.Logger) (installer.Fetcher, error) {
	opts := []source.Option{source.WithLogger(logger)}

	dir := cfg.Source.Dir
	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(projectDir, dir)
	}

	switch cfg.Source.Kind {
	case config.SourceGit:
		git := source.NewGit(cfg.Source.Git.URLTemplate, opts...)
		return withLocalFallback(git, dir, opts), nil
	case config.SourceS3:
		client, err := source.NewS3Client(ctx, source.S3Config{
			Region:   cfg.Source.S3.Region,
			Endpoint: cfg.Source.S3.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		bucket := source.NewS3(client, cfg.Source.S3.Bucket, cfg.Source.S3.Prefix, opts...)
		return withLocalFallback(bucket, dir, opts), nil
	default:
		return source.NewRegistry(dir, opts...), nil
	}
}

func withLocalFallback(remote installer.Fetcher, dir string, opts []source.Option) installer.Fetcher {
	if info, err := os.Stat(dir); dir == "" || err != nil || !info.IsDir() {
		return remote
	}
	return source.Fallback(remote, source.NewRegistry(dir, opts...))
}

// loadConfig loads the configuration and applies the global flags to it.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}
	if a.flags.verbose {
		cfg.UI.Verbose = true
	}
	a.flags.verbose = cfg.UI.Verbose
	a.colorScheme = cfg.UI.ColorScheme
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose mode always logs at debug level.
func (a *App) newLogger(cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = log.InfoLevel
	}
	if cfg.UI.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Level:  level,
		Prefix: config.AppName,
	})
}

// install copies the host project at dir into memory and installs its
// dependencies. The session is returned together with any install error so
// callers can report the partial tree.
func (a *App) install(ctx context.Context, dir string) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := a.newLogger(cfg)

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	fsys, err := source.LoadDir(abs, ".git")
	if err != nil {
		return nil, err
	}

	fetcher, err := a.Sources(ctx, cfg, abs, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("installing", "project", abs, "source", cfg.Source.Kind)
	report, err := installer.Install(ctx, fsys, nil, fetcher,
		installer.WithLogger(logger),
		installer.WithObserver(a.recorder),
		installer.WithDepsDir(cfg.DepsDir),
		installer.WithManifestName(cfg.ManifestName),
		installer.WithConcurrency(cfg.Concurrency),
	)
	return &session{cfg: cfg, logger: logger, fsys: fsys, report: report}, err
}

// newLoader returns a loader over the session tree that evaluates modules
// through the evaluator mux. Script output goes to stderr.
func (a *App) newLoader(s *session) *loader.Loader {
	shell := evaluator.NewShell(
		evaluator.WithStdout(a.stderr),
		evaluator.WithStderr(a.stderr),
		evaluator.WithLogger(s.logger),
	)
	return loader.NewLoader(loader.NewCache(), evaluator.NewMux(shell),
		loader.WithLogger(s.logger),
		loader.WithObserver(a.recorder),
		loader.WithResolveOptions(
			loader.WithExtensions(s.cfg.Extensions...),
			loader.WithResolveDepsDir(s.cfg.DepsDir),
			loader.WithResolveManifestName(s.cfg.ManifestName),
			loader.WithMaxSymlinkDepth(s.cfg.MaxSymlinkDepth),
		),
	)
}

// lookupDir resolves a VFS directory specifier in the session tree.
func (s *session) lookupDir(spec string) (*vfs.Path, error) {
	p, err := vfs.LookupDepth(s.fsys.Root(), spec, s.cfg.MaxSymlinkDepth)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Directory(); !ok {
		return nil, &vfs.PathError{Op: "lookup", Path: p.String(), Err: vfs.ErrNotDir}
	}
	return p, nil
}
