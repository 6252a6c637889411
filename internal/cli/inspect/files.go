package inspect

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/pkg/object"
)

type fileRow struct {
	Path string `header:"PATH" json:"path"`
}

// NewFilesCmd creates the files command.
func NewFilesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "files <file>",
		Short: "List the source files referenced by debug information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := helpers.LoadEnv(cmd)
			if err != nil {
				return err
			}
			outFormat, err := helpers.ResolveFormat(cmd, format, env.Config.Output.Format, helpers.ListingFormats)
			if err != nil {
				return err
			}

			var rows []fileRow
			seen := map[string]bool{}
			err = helpers.EachObject(env.Logger, args[0], func(_ int, obj *object.Object) error {
				session, err := obj.DebugSession()
				if err != nil {
					env.Logger.Warn().Err(err).Msg("Skipping object without readable debug information")
					return nil
				}
				it := session.Files()
				for it.Next() {
					entry, err := it.File()
					if err != nil {
						env.Logger.Debug().Err(err).Msg("Skipping file entry")
						continue
					}
					path := entry.AbsPath()
					if !seen[path] {
						seen[path] = true
						rows = append(rows, fileRow{Path: path})
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return helpers.Print(cmd.OutOrStdout(), outFormat, rows)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListingFormats)
	return cmd
}
