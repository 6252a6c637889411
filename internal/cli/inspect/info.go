package inspect

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/pkg/object"
)

type infoRow struct {
	Index       int    `header:"#" json:"index"`
	Format      string `header:"FORMAT" json:"format"`
	Arch        string `header:"ARCH" json:"arch"`
	Kind        string `header:"KIND" json:"kind"`
	CodeID      string `header:"CODE ID" json:"code_id,omitempty"`
	DebugID     string `header:"DEBUG ID" json:"debug_id,omitempty"`
	LoadAddress string `header:"LOAD ADDRESS" json:"load_address"`
	Features    string `header:"FEATURES" json:"features"`
	Session     string `json:"session,omitempty"`
}

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Show identity and features of every object in a file",
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

			var rows []infoRow
			err = helpers.EachObject(env.Logger, args[0], func(i int, obj *object.Object) error {
				row := infoRow{
					Index:       i,
					Format:      obj.FileFormat().String(),
					Arch:        obj.Arch().String(),
					Kind:        obj.Kind().String(),
					CodeID:      obj.CodeID().String(),
					LoadAddress: fmt.Sprintf("0x%x", obj.LoadAddress()),
					Features:    features(obj),
				}
				if id := obj.DebugID(); !id.IsNil() {
					row.DebugID = id.String()
				}
				if session, err := obj.DebugSession(); err == nil {
					row.Session = session.Kind().String()
				}
				rows = append(rows, row)
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

// features lists the capabilities of obj as a comma-separated string.
func features(obj *object.Object) string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(obj.HasSymbols(), "symtab")
	add(obj.HasDebugInfo(), "debug")
	add(obj.HasUnwindInfo(), "unwind")
	add(obj.HasSources(), "sources")
	add(obj.IsMalformed(), "malformed")
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}

