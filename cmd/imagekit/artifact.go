// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/imagekit/pkg/artifact"
	"github.com/invowk/imagekit/pkg/descriptor"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// artifactRow is one line of `artifact list`.
type artifactRow struct {
	name     string
	checksum string
	url      string
}

func newArtifactCommand(app *App) *cobra.Command {
	artifactCmd := &cobra.Command{
		Use:   "artifact",
		Short: "Resolve artifact download URLs from Koji metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	artifactCmd.AddCommand(newArtifactURLCommand(app), newArtifactListCommand(app))
	return artifactCmd
}

func newArtifactURLCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "url <checksum>",
		Short: "Print the download URL of the artifact with the given checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := app.resolver().ResolveURL(cmd.Context(), args[0])
			if err != nil {
				return wrapError(err, "resolve artifact", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func newArtifactListCommand(app *App) *cobra.Command {
	var flags assembleFlags

	cmd := &cobra.Command{
		Use:   "list <image>",
		Short: "List the artifacts of the effective image with their download URLs",
		Long: `List the artifacts of the effective image with their download URLs.

An explicit url in the artifact descriptor is used as is; otherwise the URL is
resolved from Koji with the preferred checksum (md5, sha1, sha256, sha512).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.assemble(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}

			resolver := app.resolver()
			var rows []artifactRow
			for _, item := range res.Image.List("artifacts") {
				a, ok := item.(*descriptor.Descriptor)
				if !ok {
					continue
				}
				row, err := resolveArtifact(cmd, resolver, a)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}

			w := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(w, "%s %s\n", infoIcon, SubtitleStyle.Render("no artifacts"))
				return nil
			}
			fmt.Fprintln(w, artifactTable(rows))
			return nil
		},
	}

	addAssembleFlags(cmd, &flags)
	return cmd
}

// resolveArtifact fills one row. A descriptor url wins over Koji metadata.
func resolveArtifact(cmd *cobra.Command, resolver *artifact.Resolver, a *descriptor.Descriptor) (artifactRow, error) {
	row := artifactRow{name: a.Name(), url: a.String("url")}

	sum, sumErr := artifact.PreferredChecksum(a)
	if sumErr == nil {
		row.checksum = sum.String()
	}
	if row.url != "" {
		return row, nil
	}
	if sumErr != nil {
		return row, wrapError(sumErr, "resolve artifact", row.name)
	}

	url, err := resolver.ResolveURL(cmd.Context(), sum.Value)
	if err != nil {
		return row, wrapError(err, "resolve artifact", row.name)
	}
	row.url = url
	return row, nil
}

func artifactTable(rows []artifactRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers("NAME", "CHECKSUM", "URL").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, r := range rows {
		t.Row(r.name, r.checksum, r.url)
	}
	return t.String()
}
