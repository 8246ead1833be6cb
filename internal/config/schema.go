package config

import (
	"github.com/coral-mesh/linemap/internal/linemap"
	"github.com/coral-mesh/linemap/internal/logging"
)

// Config is the user configuration (~/.linemap/config.yaml).
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
}

// LogConfig controls diagnostics written to stderr.
type LogConfig struct {
	Level  string `yaml:"level" env:"LINEMAP_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LINEMAP_LOG_PRETTY"`
}

// OutputConfig controls how line tables are rendered.
type OutputConfig struct {
	// Format is used for -o output when --format is not given.
	Format string `yaml:"format" env:"LINEMAP_OUTPUT_FORMAT"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Output: OutputConfig{
			Format: string(linemap.FormatCSV),
		},
	}
}

// Logging converts the log section into a logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Pretty = c.Log.Pretty
	return cfg
}
