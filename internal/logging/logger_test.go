package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelFiltering(t *testing.T) {
	emit := func(logger zerolog.Logger) {
		logger.Trace().Msg("trace message")
		logger.Debug().Msg("debug message")
		logger.Info().Msg("info message")
		logger.Warn().Msg("warn message")
		logger.Error().Msg("error message")
	}

	tests := []struct {
		level  string
		logged []string
		hidden []string
	}{
		{"trace", []string{"trace", "debug", "info", "warn", "error"}, nil},
		{"debug", []string{"debug", "info", "warn", "error"}, []string{"trace"}},
		{"info", []string{"info", "warn", "error"}, []string{"trace", "debug"}},
		{"warn", []string{"warn", "error"}, []string{"debug", "info"}},
		{"error", []string{"error"}, []string{"info", "warn"}},
		// Unknown names fall back to info.
		{"verbose", []string{"info"}, []string{"debug"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			emit(New(Config{Level: tt.level, Output: &buf}))

			out := buf.String()
			for _, l := range tt.logged {
				assert.Contains(t, out, l+" message")
			}
			for _, l := range tt.hidden {
				assert.NotContains(t, out, l+" message")
			}
		})
	}
}

func TestNew_LevelHierarchy(t *testing.T) {
	want := map[string]zerolog.Level{
		"trace": zerolog.TraceLevel,
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}

	for _, name := range Levels {
		logger := New(Config{Level: name, Output: &bytes.Buffer{}})
		assert.Equal(t, want[name], logger.GetLevel(), name)
	}
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Str("module", "a.out").Msg("Dumping line mappings")

	out := buf.String()
	assert.Contains(t, out, "Dumping line mappings")
	assert.False(t, strings.HasPrefix(out, "{"), "pretty output should not be JSON")
}

func TestNew_NilOutput(t *testing.T) {
	logger := New(Config{Level: "error"})
	assert.NotPanics(t, func() { logger.Info().Msg("dropped") })
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Pretty)
	assert.Equal(t, os.Stderr, cfg.Output)
}

func TestParseLevel(t *testing.T) {
	for _, name := range Levels {
		_, ok := ParseLevel(name)
		assert.True(t, ok, name)
	}

	level, ok := ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, zerolog.InfoLevel, level)
}
