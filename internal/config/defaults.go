package config

import (
	"github.com/coral-mesh/declsite/internal/modules"
)

const (
	// DefaultDir is the configuration directory below the home directory.
	DefaultDir = ".declsite"
	// ConfigFile is the configuration file name.
	ConfigFile = "config.yaml"
	// ConfigDirEnv overrides the directory holding ConfigFile.
	ConfigDirEnv = "DECLSITE_CONFIG"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Pretty: true,
		},
		Output: OutputConfig{
			Format: "table",
		},
		Debug: DebugConfig{
			Directories: append([]string(nil), modules.DefaultDebugDirectories...),
		},
	}
}
