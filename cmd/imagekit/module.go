// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/imagekit/internal/loader"
	"github.com/invowk/imagekit/internal/modules"
	"github.com/invowk/imagekit/pkg/descriptor"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newModuleCommand(app *App) *cobra.Command {
	moduleCmd := &cobra.Command{
		Use:   "module",
		Short: "Inspect module repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	moduleCmd.AddCommand(newModuleListCommand(app))
	return moduleCmd
}

func newModuleListCommand(app *App) *cobra.Command {
	var modulePaths []string

	cmd := &cobra.Command{
		Use:   "list [image]",
		Short: "List the modules found in the module repositories",
		Long: `List the modules found in the module repositories.

Repositories come from --module-path, the modules.paths configuration and,
when an image is given, the image's own modules.repositories.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := app.fetcher()
			if err != nil {
				return wrapError(err, "prepare module cache", "")
			}
			registry := modules.NewRegistry(modules.WithFetcher(fetcher), modules.WithLogger(app.logger))

			if len(args) == 1 {
				img, err := loader.LoadFile(args[0], descriptor.KindImage)
				if err != nil {
					return wrapError(err, "load image descriptor", args[0])
				}
				absPath, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("failed to resolve path: %w", err)
				}
				repos, err := modules.RepositoriesOf(img, filepath.Dir(absPath))
				if err != nil {
					return wrapError(err, "read module repositories", args[0])
				}
				if err := registry.DiscoverRepositories(cmd.Context(), repos); err != nil {
					return wrapError(err, "discover modules", args[0])
				}
			}

			if err := registry.Discover(cmd.Context(), app.modulePaths(modulePaths)...); err != nil {
				return wrapError(err, "discover modules", "")
			}

			mods := registry.Modules()
			w := cmd.OutOrStdout()
			if len(mods) == 0 {
				fmt.Fprintf(w, "%s %s\n", infoIcon, SubtitleStyle.Render("no modules found"))
				return nil
			}
			fmt.Fprintln(w, moduleTable(mods))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&modulePaths, "module-path", nil, "additional local module repository (repeatable)")
	return cmd
}

func moduleTable(mods []*modules.Module) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers("NAME", "VERSION", "INSTALLS", "PATH").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, m := range mods {
		deps := make([]string, 0, len(m.Dependencies()))
		for _, d := range m.Dependencies() {
			deps = append(deps, d.String())
		}
		t.Row(m.Name, m.Version, strings.Join(deps, ", "), m.Path)
	}
	return t.String()
}
