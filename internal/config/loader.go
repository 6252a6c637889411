// Package config loads the declsite CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/declsite/internal/safe"
)

// maxConfigSize bounds the configuration file read.
const maxConfigSize = 1 << 20

// Loader reads and writes the configuration file.
type Loader struct {
	path string
}

// NewLoader creates a loader for the configuration file. The file is
// resolved in this order:
//  1. explicit, when non-empty (the --config flag).
//  2. $DECLSITE_CONFIG/config.yaml.
//  3. ~/.declsite/config.yaml.
//
// Without a home directory the loader has no file and Load returns the
// defaults with environment overrides applied.
func NewLoader(explicit string) *Loader {
	if explicit != "" {
		return &Loader{path: explicit}
	}
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return &Loader{path: filepath.Join(dir, ConfigFile)}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return &Loader{path: filepath.Join(home, DefaultDir, ConfigFile)}
	}
	return &Loader{}
}

// Path returns the configuration file path, or "" when there is none.
func (l *Loader) Path() string { return l.path }

// Load reads the configuration file over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := safe.ReadFile(l.path, &safe.ReadOptions{MaxSize: maxConfigSize, AllowSymlinks: true})
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", l.path, err)
			}
		}
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the configuration file.
func (l *Loader) Save(cfg *Config) error {
	if l.path == "" {
		return errors.New("no configuration file location")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	//nolint:gosec // G301: Directory needs standard permissions for traversal
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
