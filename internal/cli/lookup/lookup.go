// Package lookup implements the lookup command, which resolves a function
// name to its declaration site.
package lookup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/pkg/declsite"
)

type result struct {
	Name   string `header:"NAME" json:"name"`
	File   string `header:"FILE" json:"file"`
	Line   uint32 `header:"LINE" json:"line"`
	Column uint32 `json:"column,omitempty"`
}

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	var (
		format     string
		binaries   []string
		debugFlags helpers.DebugFileFlags
	)

	cmd := &cobra.Command{
		Use:   "lookup <name>",
		Short: "Find the declaration site of a function by name",
		Long: `Find where a function is declared. The name is matched exactly against
demangled names without parameters, e.g. "main.main", "ns::Class::method"
or "crate::module::function".

Without --binary the modules loaded into declsite itself are searched.`,
		Example: `  declsite lookup 'app::run' --binary ./build/app
  declsite lookup main.main --binary ./server --binary ./server.debug -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := helpers.LoadEnv(cmd)
			if err != nil {
				return err
			}
			outFormat, err := helpers.ResolveFormat(cmd, format, env.Config.Output.Format, helpers.ListingFormats)
			if err != nil {
				return err
			}

			opts := env.ScannerOptions(&debugFlags)
			if len(binaries) > 0 {
				opts = append(opts, declsite.WithEnumerator(declsite.Files(binaries...)))
			}

			site, ok := declsite.NewScanner(opts...).DeclarationByName(args[0])
			if !ok {
				return fmt.Errorf("no declaration site found for %q", args[0])
			}

			if outFormat == helpers.FormatTable {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), site.String())
				return err
			}
			return helpers.Print(cmd.OutOrStdout(), outFormat, result{
				Name:   args[0],
				File:   site.File,
				Line:   site.Line,
				Column: site.Column,
			})
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListingFormats)
	cmd.Flags().StringArrayVarP(&binaries, "binary", "b", nil, "Binary or debug file to search (repeatable)")
	debugFlags.AddFlags(cmd.Flags())
	return cmd
}
