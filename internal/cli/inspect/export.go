package inspect

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/internal/demangle"
	clerrors "github.com/coral-mesh/declsite/internal/errors"
	"github.com/coral-mesh/declsite/internal/pprofexport"
	"github.com/coral-mesh/declsite/pkg/object"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var (
		output string
		index  int
	)

	cmd := &cobra.Command{
		Use:   "export <file> -o <out.pb.gz>",
		Short: "Write the function table as a pprof profile",
		Long: `Write one pprof sample per function, valued at the function's code size
and located at its declaration site. The result can be browsed with
"go tool pprof", for example with -top or -list.`,
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
			builder, err := buildProfile(env, obj, args[0])
			if err != nil {
				return err
			}

			//nolint:gosec // G304: Output path is provided by the user.
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer removeOnError(&err, f, env)
			defer clerrors.CloseInto(&err, f, "close profile")

			if err := builder.Write(f); err != nil {
				return err
			}
			env.Logger.Info().Int("functions", builder.Len()).Str("file", output).Msg("Profile written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().IntVar(&index, "index", 0, "Object index inside a multi-architecture file")
	clerrors.Must(cmd.MarkFlagRequired("output"), "mark output flag required")
	return cmd
}

func buildProfile(env *helpers.Env, obj *object.Object, path string) (*pprofexport.Builder, error) {
	session, err := obj.DebugSession()
	if err != nil {
		return nil, err
	}

	builder := pprofexport.NewBuilder(obj, filepath.Base(path))
	it := session.Functions()
	for it.Next() {
		fn, err := it.Function()
		if err != nil {
			env.Logger.Debug().Err(err).Msg("Skipping function")
			continue
		}
		name, ok := demangle.NameOnly.Demangle(fn.Name, fn.Language)
		if !ok {
			name = fn.Name
		}
		builder.Add(name, fn)
	}
	return builder, nil
}
