package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ListingFormats are the output formats of listing commands.
var ListingFormats = []OutputFormat{FormatTable, FormatJSON, FormatCSV}

// AddFormatFlag adds a standard --format/-o flag to a command.
// Validates that the format is in the supportedFormats list.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supportedFormats []OutputFormat) {
	formatNames := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat), description)

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatNames, cobra.ShellCompDirectiveNoFileComp
	})
}

// ResolveFormat returns the --format value when it was given on the
// command line and the configured default otherwise.
func ResolveFormat(cmd *cobra.Command, flagValue, configured string, supported []OutputFormat) (OutputFormat, error) {
	format := flagValue
	if !cmd.Flags().Changed("format") && configured != "" {
		format = configured
	}
	if err := ValidateFormat(format, supported); err != nil {
		return "", err
	}
	return OutputFormat(format), nil
}

// AddVerboseFlag adds a standard --verbose/-v flag.
func AddVerboseFlag(cmd *cobra.Command, verboseVar *bool) {
	cmd.Flags().BoolVarP(verboseVar, "verbose", "v", false, "Verbose output (show additional details)")
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}

	supportedNames := make([]string, len(supported))
	for i, s := range supported {
		supportedNames[i] = string(s)
	}

	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(supportedNames, ", "))
}

// DebugFileFlags holds the flags controlling separate debug file lookup.
type DebugFileFlags struct {
	Directories []string
	Disabled    bool
}

// AddFlags adds debug file flags to a FlagSet.
func (f *DebugFileFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringSliceVar(&f.Directories, "debug-dir", nil, "Directory searched for separate debug files (repeatable)")
	flags.BoolVar(&f.Disabled, "no-debug-files", false, "Do not look for separate debug files")
}

// Resolve merges the flags over the configured values: directories given
// on the command line replace the configured list.
func (f *DebugFileFlags) Resolve(configuredDirs []string, configuredDisabled bool) ([]string, bool) {
	dirs := configuredDirs
	if len(f.Directories) > 0 {
		dirs = f.Directories
	}
	return dirs, f.Disabled || configuredDisabled
}
