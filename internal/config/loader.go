// Package config provides configuration, batch manifest and lock file loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/linemap/internal/constants"
	"github.com/coral-mesh/linemap/internal/safe"
)

// maxConfigSize bounds every YAML file read by this package.
const maxConfigSize = 1 << 20

// Loader resolves and loads the user configuration file.
type Loader struct {
	homeDir string
}

// NewLoader creates a new config loader.
// The base directory is resolved in this order:
//  1. LINEMAP_CONFIG environment variable.
//  2. User home directory (~/).
//  3. The system temp directory, where no config file exists and defaults apply.
func NewLoader() *Loader {
	if baseDir := os.Getenv(constants.ConfigEnv); baseDir != "" {
		return &Loader{homeDir: baseDir}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	return &Loader{homeDir: homeDir}
}

// ConfigPath returns the path to the configuration file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.homeDir, constants.DefaultDir, constants.ConfigFile)
}

// Load loads the configuration file, falling back to defaults when it does
// not exist, then applies environment overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	return LoadFile(l.ConfigPath(), true)
}

// LoadFile loads the configuration at path. When optional is set, a missing
// file yields the defaults.
func LoadFile(path string, optional bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := safe.ReadFile(path, &safe.ReadFileOptions{MaxSize: maxConfigSize})
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
