package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/internal/cli/inspect"
	"github.com/coral-mesh/declsite/internal/cli/lookup"
	"github.com/coral-mesh/declsite/pkg/version"
)

// NewRootCmd builds the declsite command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "declsite",
		Short: "declsite - find where functions are declared",
		Long: `Resolve function names to the source file and line that declare them,
using the debug information of ELF, Mach-O, PE, PDB and WebAssembly files.

The inspection commands work on a single file; lookup searches a set of
binaries or the modules loaded into declsite itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	helpers.AddGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(lookup.NewLookupCmd())
	rootCmd.AddCommand(inspect.NewPeekCmd())
	rootCmd.AddCommand(inspect.NewInfoCmd())
	rootCmd.AddCommand(inspect.NewFunctionsCmd())
	rootCmd.AddCommand(inspect.NewFilesCmd())
	rootCmd.AddCommand(inspect.NewSymbolsCmd())
	rootCmd.AddCommand(inspect.NewSourceCmd())
	rootCmd.AddCommand(inspect.NewBundleCmd())
	rootCmd.AddCommand(inspect.NewExportCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			cmd.Printf("declsite version %s\n", info.Version)
			cmd.Printf("Git commit: %s\n", info.GitCommit)
			cmd.Printf("Build date: %s\n", info.BuildDate)
			cmd.Printf("Go version: %s\n", info.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
