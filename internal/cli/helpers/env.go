package helpers

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/declsite/internal/config"
	"github.com/coral-mesh/declsite/internal/logging"
	"github.com/coral-mesh/declsite/internal/modules"
	"github.com/coral-mesh/declsite/pkg/declsite"
	"github.com/coral-mesh/declsite/pkg/object"
)

// Global flag names, registered on the root command.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
)

// AddGlobalFlags registers the persistent flags shared by every command.
func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.String(FlagConfig, "", "Config file (default ~/.declsite/config.yaml)")
	flags.String(FlagLogLevel, "", "Log level (trace, debug, info, warn, error)")
}

// Env is the loaded configuration and logger of a command invocation.
type Env struct {
	Config *config.Config
	Logger zerolog.Logger
}

// LoadEnv loads the configuration named by the global flags and builds the
// command logger, which writes to the command's error stream.
func LoadEnv(cmd *cobra.Command) (*Env, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString(FlagLogLevel); level != "" {
		cfg.Log.Level = level
	}

	logger := logging.NewWithComponent(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	}, "cli")
	return &Env{Config: cfg, Logger: logger}, nil
}

// ScannerOptions returns the scanner options for the configuration and the
// command's debug file flags.
func (e *Env) ScannerOptions(flags *DebugFileFlags) []declsite.Option {
	dirs, disabled := flags.Resolve(e.Config.Debug.Directories, e.Config.Debug.Disabled)
	opts := []declsite.Option{declsite.WithLogger(e.Logger)}
	if disabled {
		return append(opts, declsite.WithoutDebugFiles())
	}
	return append(opts, declsite.WithDebugFileDirectories(dirs...))
}

// OpenArchive reads and parses the binary at path.
func OpenArchive(path string) (*object.Archive, error) {
	data, err := modules.ReadObjectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	archive, err := object.ParseArchive(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return archive, nil
}

// EachObject calls fn for every object of the archive at path. Objects
// that fail to parse are logged and skipped.
func EachObject(logger zerolog.Logger, path string, fn func(index int, obj *object.Object) error) error {
	archive, err := OpenArchive(path)
	if err != nil {
		return err
	}
	it := archive.Objects()
	for i := 0; it.Next(); i++ {
		obj, err := it.Object()
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Int("index", i).Msg("Skipping unreadable object")
			continue
		}
		if err := fn(i, obj); err != nil {
			return err
		}
	}
	return nil
}
