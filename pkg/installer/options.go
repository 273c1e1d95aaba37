// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/modfs/pkg/manifest"
)

type (
	// Observer receives install events. internal/metrics implements it.
	Observer interface {
		FetchDone(name, constraint string, elapsed time.Duration, err error)
		Grafted(id, kind string)
	}

	// Option configures an install run.
	Option func(*options)

	options struct {
		logger       *log.Logger
		observer     Observer
		depsDir      string
		manifestName string
		concurrency  int
		shared       bool
	}

	nopObserver struct{}
)

func (nopObserver) FetchDone(string, string, time.Duration, error) {}
func (nopObserver) Grafted(string, string) {}

func defaultOptions() options {
	return options{
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
		observer:     nopObserver{},
		depsDir:      manifest.DepsDirName,
		manifestName: manifest.FileName,
		shared:       true,
	}
}

// WithLogger sets the logger used for progress and debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an observer for fetch and graft events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithDepsDir overrides the dependency directory name.
func WithDepsDir(name string) Option {
	return func(o *options) {
		if name != "" {
			o.depsDir = name
		}
	}
}

// WithManifestName overrides the manifest file name.
func WithManifestName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.manifestName = name
		}
	}
}

// WithConcurrency bounds the number of sibling dependencies processed at
// once within one directory. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithoutSharedFetches disables the run-scoped fetch memo. Every
// dependency directory then fetches and grafts its own copy, and a package
// that depends on itself transitively fails with vfs.ErrCyclic.
func WithoutSharedFetches() Option {
	return func(o *options) {
		o.shared = false
	}
}
