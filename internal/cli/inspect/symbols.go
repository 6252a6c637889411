package inspect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/internal/demangle"
	"github.com/coral-mesh/declsite/pkg/object"
)

type symbolRow struct {
	Address string `header:"ADDRESS" json:"address"`
	Size    uint64 `header:"SIZE" json:"size"`
	Name    string `header:"NAME" json:"name"`
	Raw     string `json:"raw_name,omitempty"`
}

// NewSymbolsCmd creates the symbols command.
func NewSymbolsCmd() *cobra.Command {
	var (
		format string
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "symbols <file>",
		Short: "List the public symbol table",
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

			var rows []symbolRow
			err = helpers.EachObject(env.Logger, args[0], func(_ int, obj *object.Object) error {
				for _, sym := range obj.SymbolMap().Symbols() {
					row := symbolRow{
						Address: fmt.Sprintf("0x%x", sym.Address),
						Size:    sym.Size,
						Name:    sym.Name,
					}
					if !raw {
						if name, ok := demangle.NameOnly.Demangle(sym.Name, object.LangUnknown); ok && name != sym.Name {
							row.Name = name
							row.Raw = sym.Name
						}
					}
					rows = append(rows, row)
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
	cmd.Flags().BoolVar(&raw, "raw", false, "Print names as stored, without demangling")
	return cmd
}
