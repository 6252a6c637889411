package inspect

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	clerrors "github.com/coral-mesh/declsite/internal/errors"
	"github.com/coral-mesh/declsite/pkg/object"
)

// errNoSources reports a bundle that would contain no file.
var errNoSources = errors.New("none of the referenced source files could be read")

// NewBundleCmd creates the bundle command.
func NewBundleCmd() *cobra.Command {
	var (
		output string
		index  int
	)

	cmd := &cobra.Command{
		Use:   "bundle <file> -o <out.srcbundle>",
		Short: "Write a source bundle from the sources a debug file references",
		Long: `Collect the source files referenced by the debug information of a file
into a source bundle. The bundle records the object's architecture, debug
id and code id, so it can be matched to the binary later. Source files
that cannot be read are left out; no bundle is written when none can.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			env, err := helpers.LoadEnv(cmd)
			if err != nil {
				return err
			}

			archive, err := helpers.OpenArchive(args[0])
			if err != nil {
				return err
			}
			obj, err := archive.ObjectByIndex(index)
			if err != nil {
				return err
			}

			//nolint:gosec // G304: Output path is provided by the user.
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer removeOnError(&err, f, env)
			defer clerrors.CloseInto(&err, f, "close bundle")

			written, err := object.NewSourceBundleWriter(f).WriteObject(obj, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if !written {
				return errNoSources
			}
			env.Logger.Info().Str("file", output).Msg("Source bundle written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().IntVar(&index, "index", 0, "Object index inside a multi-architecture file")
	clerrors.Must(cmd.MarkFlagRequired("output"), "mark output flag required")
	return cmd
}
