package inspect

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/pkg/object"
)

// NewSourceCmd creates the source command.
func NewSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source <file> <path>",
		Short: "Print source text embedded in a source bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := helpers.LoadEnv(cmd)
			if err != nil {
				return err
			}

			var (
				text  string
				found bool
			)
			err = helpers.EachObject(env.Logger, args[0], func(_ int, obj *object.Object) error {
				if found {
					return nil
				}
				session, err := obj.DebugSession()
				if err != nil {
					return err
				}
				text, found, err = session.SourceByPath(args[1])
				return err
			})
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no embedded source for %s in %s", args[1], args[0])
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}
