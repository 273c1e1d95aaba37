// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modfs/internal/config"
)

// newConfigCommand creates the `modfs config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modfs configuration",
		Long: `Manage modfs configuration.

Configuration is stored in:
  - Linux: ~/.config/modfs/config.cue
  - macOS: ~/Library/Application Support/modfs/config.cue
  - Windows: %APPDATA%\modfs\config.cue

A config.cue in the current directory is used when the user file is
absent. Every key can be overridden with a MODFS_* environment variable,
for example MODFS_SOURCE_KIND=git or MODFS_DEPS_DIR=vendor_modules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfigPath(cmd.Context())
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.stdout, config.GenerateCUE(cfg))
	return nil
}

func (a *App) initConfig() error {
	path, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	fmt.Fprintf(a.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func (a *App) showConfigPath(ctx context.Context) error {
	_, path, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(a.stdout, SubtitleStyle.Render("(using defaults)"))
		return nil
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}
