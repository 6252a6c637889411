package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/pkg/declsite"
	"github.com/coral-mesh/declsite/pkg/object"
)

type functionRow struct {
	Name        string `header:"NAME" json:"name"`
	Language    string `header:"LANG" json:"language"`
	Address     string `header:"ADDRESS" json:"address"`
	Size        uint64 `header:"SIZE" json:"size"`
	Declaration string `header:"DECLARATION" json:"declaration,omitempty"`
}

// NewFunctionsCmd creates the functions command.
func NewFunctionsCmd() *cobra.Command {
	var (
		format     string
		filter     string
		inlinees   bool
		debugFlags helpers.DebugFileFlags
	)

	cmd := &cobra.Command{
		Use:   "functions <file>",
		Short: "List functions with their declaration sites",
		Long: `List the functions in the debug information of a file, with their
demangled names and declaration sites. Functions whose names cannot be
demangled are left out, as are functions without line information when
--inlinees is given.`,
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

			opts := append(env.ScannerOptions(&debugFlags), declsite.WithEnumerator(declsite.Files(args[0])))
			scanner := declsite.NewScanner(opts...)

			var (
				rows  []functionRow
				trees []helpers.TreeNode
			)
			scanner.Each(func(name string, fn *object.Function) declsite.Flow {
				if filter != "" && !strings.Contains(name, filter) {
					return declsite.Continue
				}
				if inlinees {
					if len(fn.Inlinees) > 0 {
						trees = append(trees, newInlineeNode(name, fn))
					}
					return declsite.Continue
				}
				row := functionRow{
					Name:     name,
					Language: fn.Language.String(),
					Address:  fmt.Sprintf("0x%x", fn.Address),
					Size:     fn.Size,
				}
				if site, err := declsite.Derive(fn); err == nil {
					row.Declaration = site.String()
				}
				rows = append(rows, row)
				return declsite.Continue
			})

			if inlinees {
				return printTrees(cmd.OutOrStdout(), trees)
			}
			return helpers.Print(cmd.OutOrStdout(), outFormat, rows)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListingFormats)
	cmd.Flags().StringVar(&filter, "filter", "", "Only list functions whose name contains this string")
	cmd.Flags().BoolVar(&inlinees, "inlinees", false, "Print the inlined call tree of each function")
	debugFlags.AddFlags(cmd.Flags())
	return cmd
}

func printTrees(w io.Writer, trees []helpers.TreeNode) error {
	for _, tree := range trees {
		if _, err := io.WriteString(w, helpers.RenderTree(tree)); err != nil {
			return err
		}
	}
	return nil
}

// inlineeNode renders a function and the functions inlined into it.
type inlineeNode struct {
	name string
	fn   *object.Function
}

func newInlineeNode(name string, fn *object.Function) *inlineeNode {
	return &inlineeNode{name: name, fn: fn}
}

func (n *inlineeNode) Label() string { return n.name }

func (n *inlineeNode) Detail() string {
	site, err := declsite.Derive(n.fn)
	if err != nil {
		return ""
	}
	return site.String()
}

func (n *inlineeNode) Children() []helpers.TreeNode {
	children := make([]helpers.TreeNode, 0, len(n.fn.Inlinees))
	for i := range n.fn.Inlinees {
		child := &n.fn.Inlinees[i]
		children = append(children, newInlineeNode(child.Name, child))
	}
	return children
}
