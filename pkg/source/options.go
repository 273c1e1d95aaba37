// SPDX-License-Identifier: MPL-2.0

package source

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// Option configures a source.
	Option func(*options)

	options struct {
		logger  *log.Logger
		strip   int
		maxSize int64
	}
)

func defaultOptions() options {
	return options{
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		strip:   1,
		maxSize: DefaultMaxArchiveSize,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrip sets how many leading path components are dropped from archive
// entries. The default of 1 matches npm tarballs ("package/...").
func WithStrip(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.strip = n
		}
	}
}

// WithMaxSize bounds the decompressed size of fetched archives.
func WithMaxSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

func (o options) decode(data []byte) (*vfs.Directory, error) {
	return DecodeArchive(data, WithStripComponents(o.strip), WithMaxArchiveSize(o.maxSize))
}
