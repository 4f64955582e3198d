// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/imagekit/internal/loader"
	"github.com/invowk/imagekit/pkg/descriptor"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *App) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a descriptor against its schema",
		Long: `Check a descriptor against its schema.

The kind defaults to "module" for files named module.yaml or module.yml and
to "image" otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			k := descriptor.Kind(kind)
			if kind == "" {
				k = kindFromPath(path)
			}
			if err := k.Validate(); err != nil {
				return err
			}

			d, err := loader.LoadFile(path, k)
			if err != nil {
				return wrapError(err, "validate descriptor", path)
			}

			app.logger.Debug("descriptor is valid", "path", path, "kind", k, "keys", d.Len())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is a valid %s descriptor\n", successIcon, path, k)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "descriptor kind (image, module, overrides, ...)")
	_ = cmd.RegisterFlagCompletionFunc("kind", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		kinds := descriptor.Kinds()
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func kindFromPath(path string) descriptor.Kind {
	base := strings.ToLower(filepath.Base(path))
	if strings.TrimSuffix(base, filepath.Ext(base)) == "module" {
		return descriptor.KindModule
	}
	return descriptor.KindImage
}
