// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"sync"
)

type (
	// LoadOptions selects where configuration is read from. Zero values fall
	// back to the user config directory and then the working directory.
	LoadOptions struct {
		// ConfigFilePath loads exactly this file; a missing file is an error.
		ConfigFilePath string
		// ConfigDirPath replaces the user config directory.
		ConfigDirPath string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}

	// dirOverride redirects ConfigDir in tests, where os.UserConfigDir
	// would escape the sandbox.
	dirOverride struct {
		mu  sync.RWMutex
		dir string
	}
)

var overrides dirOverride

// NewProvider returns the provider backed by config.cue files, MODFS_*
// environment variables and built-in defaults.
func NewProvider() Provider {
	return fileProvider{}
}

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

// LoadWithPath is Load that also reports the file the configuration came
// from ("" when only defaults and environment were used).
func LoadWithPath(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	overrides.mu.Lock()
	overrides.dir = dir
	overrides.mu.Unlock()
}

// Reset clears SetConfigDirOverride.
func Reset() {
	SetConfigDirOverride("")
}

func (o *dirOverride) configDir() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.dir
}
