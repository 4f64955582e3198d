// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invowk/imagekit/pkg/descriptor"

	"github.com/spf13/cobra"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// addAssembleFlags registers the flags shared by commands that assemble an image.
func addAssembleFlags(cmd *cobra.Command, flags *assembleFlags) {
	cmd.Flags().StringArrayVarP(&flags.overrides, "overrides", "o", nil,
		"overrides file or inline YAML document (repeatable, later wins)")
	cmd.Flags().StringArrayVar(&flags.modulePaths, "module-path", nil,
		"additional local module repository (repeatable)")
}

func newMergeCommand(app *App) *cobra.Command {
	var (
		flags  assembleFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "merge <image>",
		Short: "Print the effective image descriptor",
		Long: `Print the effective image descriptor.

The image is combined with the overrides, in the order given, and with every
module it installs. Overrides win over the image, the image wins over its
modules, and modules win over the modules they depend on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatYAML && format != formatJSON {
				return fmt.Errorf("invalid --format %q: must be %q or %q", format, formatYAML, formatJSON)
			}

			res, err := app.assemble(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}
			return writeDescriptor(cmd.OutOrStdout(), res.Image, format)
		},
	}

	addAssembleFlags(cmd, &flags)
	cmd.Flags().StringVar(&format, "format", formatYAML, "output format: yaml or json")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{formatYAML, formatJSON}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// writeDescriptor encodes d, keeping its key order.
func writeDescriptor(w io.Writer, d *descriptor.Descriptor, format string) error {
	if format == formatJSON {
		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode descriptor: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	out, err := d.YAML()
	if err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}
	_, err = w.Write(out)
	return err
}
