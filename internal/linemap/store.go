package linemap

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/linemap/internal/safe"
)

// Save renders t and atomically replaces the file at path. Readers never
// observe a partially written table.
func Save(path string, t Table, format OutputFormat, logger zerolog.Logger) error {
	var buf bytes.Buffer
	if err := Write(&buf, t, format); err != nil {
		return err
	}

	if err := safe.WriteFileAtomic(path, buf.Bytes(), 0o644, logger); err != nil {
		return fmt.Errorf("failed to save line mappings: %w", err)
	}

	logger.Debug().
		Str("path", path).
		Str("format", string(format)).
		Int("records", len(t)).
		Msg("Saved line mappings")
	return nil
}

// Load reads a CSV table written by Save.
func Load(path string) (Table, error) {
	// #nosec G304 - path is a table the user asked to read.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open line mappings: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}
