// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/invowk/modfs/internal/issue"
	"github.com/invowk/modfs/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modfs"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (MODFS_DEPS_DIR, MODFS_SOURCE_KIND, ...).
	EnvPrefix = "MODFS"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modfs directory below the platform's user
// configuration directory ($XDG_CONFIG_HOME or ~/.config on Linux,
// ~/Library/Application Support on macOS, %AppData% on Windows).
//
//nolint:revive // config.ConfigDir reads better than config.Dir at call sites
func ConfigDir() (string, error) {
	if dir := overrides.configDir(); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// newViper returns a viper instance carrying the defaults and environment
// bindings.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("deps_dir", defaults.DepsDir)
	v.SetDefault("manifest_name", defaults.ManifestName)
	v.SetDefault("max_symlink_depth", defaults.MaxSymlinkDepth)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("extensions", defaults.Extensions)
	v.SetDefault("source.kind", defaults.Source.Kind)
	v.SetDefault("source.dir", defaults.Source.Dir)
	v.SetDefault("source.git.url_template", defaults.Source.Git.URLTemplate)
	v.SetDefault("source.s3.bucket", defaults.Source.S3.Bucket)
	v.SetDefault("source.s3.prefix", defaults.Source.S3.Prefix)
	v.SetDefault("source.s3.region", defaults.Source.S3.Region)
	v.SetDefault("source.s3.endpoint", defaults.Source.S3.Endpoint)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()
	resolvedPath := ""

	// An explicit --config path is used exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modfs config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			var err error
			if cfgDir, err = ConfigDir(); err != nil {
				return nil, "", err
			}
		}
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
		// No config file means defaults plus environment.
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the values set in the config file and in " + EnvPrefix + "_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// This does not use cueutil.ParseAndDecode: the result must be a map merged
// into Viper (so defaults and env overrides still apply), and optional
// fields require Concrete(false).
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CreateDefaultConfig writes the default configuration to the config
// directory unless a config file already exists there. It returns the path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modfs configuration file\n\n")

	fmt.Fprintf(&sb, "deps_dir:          %q\n", cfg.DepsDir)
	fmt.Fprintf(&sb, "manifest_name:     %q\n", cfg.ManifestName)
	fmt.Fprintf(&sb, "max_symlink_depth: %d\n", cfg.MaxSymlinkDepth)
	fmt.Fprintf(&sb, "concurrency:       %d\n", cfg.Concurrency)

	quoted := make([]string, len(cfg.Extensions))
	for i, ext := range cfg.Extensions {
		quoted[i] = fmt.Sprintf("%q", ext)
	}
	fmt.Fprintf(&sb, "extensions: [%s]\n", strings.Join(quoted, ", "))

	sb.WriteString("\nsource: {\n")
	fmt.Fprintf(&sb, "\tkind: %q\n", cfg.Source.Kind)
	if cfg.Source.Dir != "" {
		fmt.Fprintf(&sb, "\tdir:  %q\n", cfg.Source.Dir)
	}
	if cfg.Source.Git.URLTemplate != "" {
		fmt.Fprintf(&sb, "\tgit: url_template: %q\n", cfg.Source.Git.URLTemplate)
	}
	if s3 := cfg.Source.S3; s3 != (S3SourceConfig{}) {
		sb.WriteString("\ts3: {\n")
		for _, kv := range [][2]string{
			{"bucket", s3.Bucket},
			{"prefix", s3.Prefix},
			{"region", s3.Region},
			{"endpoint", s3.Endpoint},
		} {
			if kv[1] != "" {
				fmt.Fprintf(&sb, "\t\t%s: %q\n", kv[0], kv[1])
			}
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}
