// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/imagekit/pkg/descriptor"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	var flags assembleFlags

	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Show how the effective image runs",
		Long: `Show the user, working directory and command line of the effective image.

Modules only fill run settings the image leaves empty; lists such as cmd are
never combined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.assemble(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}

			r, ok := descriptor.AsRun(res.Image.Descriptor("run"))
			if !ok {
				r, err = descriptor.NewRun(nil)
				if err != nil {
					return err
				}
			}

			line, err := r.CommandLine()
			if err != nil {
				return fmt.Errorf("failed to quote command line: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("user:   "), orUnset(r.User()))
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("workdir:"), orUnset(r.Workdir()))
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("command:"), orUnset(line))
			return nil
		},
	}

	addAssembleFlags(cmd, &flags)
	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return SubtitleStyle.Render("(not set)")
	}
	return s
}
