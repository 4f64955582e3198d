// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/invowk/imagekit/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `imagekit config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage imagekit configuration",
		Long: `Manage imagekit configuration.

Configuration is stored in:
  - Linux: ~/.config/imagekit/config.cue
  - macOS: ~/Library/Application Support/imagekit/config.cue
  - Windows: %APPDATA%\imagekit\config.cue

Every key can be overridden with an IMAGEKIT_ environment variable,
for example IMAGEKIT_DOWNLOAD_HOST or IMAGEKIT_MODULES_PATHS=/a,/b.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, exists, err := config.FilePath(config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				return err
			}
			if !exists {
				path = ""
			}
			showConfig(cmd.OutOrStdout(), app.cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := config.FilePath(config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Create default configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.Init(config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				return wrapError(err, "create configuration", path)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", successIcon, path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s\n", infoIcon, path)
			}
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	value := func(s string) string {
		if s == "" {
			return SubtitleStyle.Render("(default)")
		}
		return SuccessStyle.Render(s)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("metadata.binary"), value(cfg.Metadata.Binary))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("download.host"), value(cfg.Download.Host))
	if len(cfg.Modules.Paths) == 0 {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("modules.paths"), SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("modules.paths"), value(strings.Join(cfg.Modules.Paths, ", ")))
	}
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("modules.cache_dir"), value(cfg.Modules.CacheDir))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("log.level"), value(string(cfg.Log.Level)))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("ui.color_scheme"), value(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("ui.verbose"), value(fmt.Sprintf("%v", cfg.UI.Verbose)))
}
