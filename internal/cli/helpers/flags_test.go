package helpers

import (
	"testing"

	"github.com/spf13/cobra"
)

func newFormatCmd(format *string) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	AddFormatFlag(cmd, format, FormatTable, ListingFormats)
	return cmd
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		configured string
		want       OutputFormat
		wantErr    bool
	}{
		{name: "default", want: FormatTable},
		{name: "configured default", configured: "json", want: FormatJSON},
		{name: "flag wins", args: []string{"-o", "csv"}, configured: "json", want: FormatCSV},
		{name: "invalid flag", args: []string{"--format", "xml"}, wantErr: true},
		{name: "invalid configured", configured: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var format string
			cmd := newFormatCmd(&format)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			got, err := ResolveFormat(cmd, format, tt.configured, ListingFormats)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDebugFileFlags_Resolve(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var flags DebugFileFlags
	flags.AddFlags(cmd.Flags())

	dirs, disabled := flags.Resolve([]string{"/usr/lib/debug"}, false)
	if len(dirs) != 1 || dirs[0] != "/usr/lib/debug" || disabled {
		t.Errorf("Resolve() without flags = %v, %v", dirs, disabled)
	}

	if err := cmd.ParseFlags([]string{"--debug-dir", "/a,/b", "--no-debug-files"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	dirs, disabled = flags.Resolve([]string{"/usr/lib/debug"}, false)
	if len(dirs) != 2 || dirs[0] != "/a" || dirs[1] != "/b" || !disabled {
		t.Errorf("Resolve() with flags = %v, %v", dirs, disabled)
	}

	_, disabled = (&DebugFileFlags{}).Resolve(nil, true)
	if !disabled {
		t.Error("configured disable should be kept")
	}
}

func TestValidateFormat(t *testing.T) {
	if err := ValidateFormat("json", ListingFormats); err != nil {
		t.Errorf("ValidateFormat(json) error = %v", err)
	}
	if err := ValidateFormat("yaml", ListingFormats); err == nil {
		t.Error("ValidateFormat(yaml) should fail")
	}
}
