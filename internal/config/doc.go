// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modfs/config.cue (XDG_CONFIG_HOME on Linux,
// ~/Library/Application Support/modfs/config.cue on macOS, %APPDATA%\modfs\config.cue
// on Windows), or from config.cue in the current directory. Files are validated
// against config_schema.cue before they are merged over the defaults, and MODFS_*
// environment variables override both (MODFS_DEPS_DIR, MODFS_SOURCE_KIND, ...).
//
// The settings cover the dependency directory layout, resolution (extensions,
// symlink depth), the package source the installer fetches from, and logging.
package config
