// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/modfs/pkg/manifest"
	"github.com/invowk/modfs/pkg/vfs"
)

const (
	// SourceDir serves packages from a host registry directory.
	SourceDir SourceKind = "dir"
	// SourceGit serves packages from git repositories.
	SourceGit SourceKind = "git"
	// SourceS3 serves packed packages from an S3 bucket.
	SourceS3 SourceKind = "s3"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidSourceKind is returned when a SourceKind value is not recognized.
	ErrInvalidSourceKind = errors.New("invalid source kind")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidSourceConfig is the sentinel error wrapped by InvalidSourceConfigError.
	ErrInvalidSourceConfig = errors.New("invalid source config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// SourceKind selects the package source the installer fetches from.
	SourceKind string

	// InvalidSourceKindError is returned when a SourceKind value is not recognized.
	// It wraps ErrInvalidSourceKind for errors.Is() compatibility.
	InvalidSourceKindError struct {
		Value SourceKind
	}

	// ColorScheme selects the style used to render issue hints.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidSourceConfigError is returned when the selected source is missing
	// required settings.
	InvalidSourceConfigError struct {
		Kind   SourceKind
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// DepsDir is the dependency directory name (default "node_modules").
		DepsDir string `json:"deps_dir" mapstructure:"deps_dir"`
		// ManifestName is the manifest file name (default "package.json").
		ManifestName string `json:"manifest_name" mapstructure:"manifest_name"`
		// MaxSymlinkDepth bounds symlink chains during resolution.
		MaxSymlinkDepth int `json:"max_symlink_depth" mapstructure:"max_symlink_depth"`
		// Concurrency bounds parallel fetches per dependency directory.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
		// Extensions are tried in order when a path specifier has none.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
		// Source configures where packages are fetched from.
		Source SourceConfig `json:"source" mapstructure:"source"`
		// Log configures the CLI logger.
		Log LogConfig `json:"log" mapstructure:"log"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// SourceConfig selects and configures the package source.
	SourceConfig struct {
		Kind SourceKind `json:"kind" mapstructure:"kind"`
		// Dir is the registry directory for the "dir" source.
		Dir string          `json:"dir" mapstructure:"dir"`
		Git GitSourceConfig `json:"git" mapstructure:"git"`
		S3  S3SourceConfig  `json:"s3" mapstructure:"s3"`
	}

	// GitSourceConfig configures the git source.
	GitSourceConfig struct {
		// URLTemplate is the repository URL with a "{name}" placeholder.
		URLTemplate string `json:"url_template" mapstructure:"url_template"`
	}

	// S3SourceConfig configures the S3 source. Credentials come from the
	// standard AWS environment and shared config files.
	S3SourceConfig struct {
		Bucket   string `json:"bucket" mapstructure:"bucket"`
		Prefix   string `json:"prefix" mapstructure:"prefix"`
		Region   string `json:"region" mapstructure:"region"`
		Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and full error chains.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the issue hint style.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// Error implements the error interface for InvalidSourceKindError.
func (e *InvalidSourceKindError) Error() string {
	return fmt.Sprintf("invalid source kind %q (valid: dir, git, s3)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidSourceKindError) Unwrap() error { return ErrInvalidSourceKind }

// String returns the string representation of the SourceKind.
func (k SourceKind) String() string { return string(k) }

// IsValid returns whether the SourceKind is one of the defined kinds,
// and a list of validation errors if it is not.
func (k SourceKind) IsValid() (bool, []error) {
	switch k {
	case SourceDir, SourceGit, SourceS3:
		return true, nil
	default:
		return false, []error{&InvalidSourceKindError{Value: k}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// GlamourStyle returns the glamour standard style name for the scheme.
func (cs ColorScheme) GlamourStyle() string {
	if cs == "" {
		return string(ColorSchemeAuto)
	}
	return string(cs)
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidSourceConfigError.
func (e *InvalidSourceConfigError) Error() string {
	return fmt.Sprintf("invalid %s source: %s", e.Kind, e.Reason)
}

// Unwrap returns ErrInvalidSourceConfig for errors.Is() compatibility.
func (e *InvalidSourceConfigError) Unwrap() error { return ErrInvalidSourceConfig }

// IsValid returns whether the source kind is known and the settings it
// needs are present.
func (c SourceConfig) IsValid() (bool, []error) {
	if valid, errs := c.Kind.IsValid(); !valid {
		return false, errs
	}
	var reason string
	switch c.Kind {
	case SourceDir:
		if strings.TrimSpace(c.Dir) == "" {
			reason = "dir must be set"
		}
	case SourceGit:
		if !strings.Contains(c.Git.URLTemplate, "{name}") {
			reason = "git.url_template must contain {name}"
		}
	case SourceS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			reason = "s3.bucket must be set"
		}
	}
	if reason != "" {
		return false, []error{&InvalidSourceConfigError{Kind: c.Kind, Reason: reason}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the Config has valid fields. It checks the
// constraints the schema cannot see because they may come from the
// environment.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, name := range []string{c.DepsDir, c.ManifestName} {
		if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("%w: %q is not a plain file name", vfs.ErrInvalidName, name))
		}
	}
	if c.MaxSymlinkDepth < 1 {
		errs = append(errs, fmt.Errorf("max_symlink_depth must be at least 1, got %d", c.MaxSymlinkDepth))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	if valid, fieldErrs := c.Source.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DepsDir:         manifest.DepsDirName,
		ManifestName:    manifest.FileName,
		MaxSymlinkDepth: vfs.MaxSymlinkDepth,
		Concurrency:     8,
		Extensions:      []string{".sh", ".json", ".toml"},
		Source: SourceConfig{
			Kind: SourceDir,
			Dir:  "registry",
		},
		Log: LogConfig{Level: LogLevelInfo},
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
		},
	}
}
