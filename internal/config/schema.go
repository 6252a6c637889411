package config

// Config is the declsite CLI configuration, read from
// ~/.declsite/config.yaml and overridden by DECLSITE_* variables.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
	Debug  DebugConfig  `yaml:"debug"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level  string `yaml:"level" env:"DECLSITE_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"DECLSITE_LOG_PRETTY"`
}

// OutputConfig controls how listing commands print results.
type OutputConfig struct {
	// Format is the default for --format: table, json or csv.
	Format string `yaml:"format" env:"DECLSITE_OUTPUT_FORMAT"`
}

// DebugConfig controls the lookup of separate debug files.
type DebugConfig struct {
	// Directories are searched for build-id and debuglink files.
	Directories []string `yaml:"directories,omitempty" env:"DECLSITE_DEBUG_DIRS"`
	// Disabled turns off separate debug file lookup entirely.
	Disabled bool `yaml:"disabled" env:"DECLSITE_DEBUG_FILES_DISABLED"`
}
