package inspect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/internal/modules"
	"github.com/coral-mesh/declsite/pkg/object"
)

type peekRow struct {
	File    string `header:"FILE" json:"file"`
	Format  string `header:"FORMAT" json:"format"`
	Archive string `header:"ARCHIVE" json:"archive"`
}

// NewPeekCmd creates the peek command.
func NewPeekCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "peek <file>...",
		Short: "Detect the object format of files",
		Long: `Detect the object format of each file from its header.

FORMAT is the format of a single object; fat Mach-O files report "unknown"
there. ARCHIVE is the format when multi-architecture containers are
accepted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := helpers.LoadEnv(cmd)
			if err != nil {
				return err
			}
			outFormat, err := helpers.ResolveFormat(cmd, format, env.Config.Output.Format, helpers.ListingFormats)
			if err != nil {
				return err
			}

			rows := make([]peekRow, 0, len(args))
			for _, path := range args {
				data, err := modules.ReadModule(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				rows = append(rows, peekRow{
					File:    path,
					Format:  object.Peek(data, false).String(),
					Archive: object.PeekArchive(data).String(),
				})
			}
			return helpers.Print(cmd.OutOrStdout(), outFormat, rows)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListingFormats)
	return cmd
}
