package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/linemap/internal/constants"
	"github.com/coral-mesh/linemap/internal/safe"
)

// Lock records the fingerprint of every image a batch has extracted, keyed
// by module name.
type Lock struct {
	// RunID identifies the batch run that last wrote the lock.
	RunID  string            `yaml:"run_id,omitempty"`
	Images map[string]string `yaml:"images"`
}

// LockPath returns the lock file location for an output directory.
func LockPath(outDir string) string {
	return filepath.Join(outDir, constants.LockFile)
}

// LoadLock reads a lock file. A missing file yields an empty lock.
func LoadLock(path string) (*Lock, error) {
	lock := &Lock{Images: map[string]string{}}

	data, err := safe.ReadFile(path, &safe.ReadFileOptions{MaxSize: maxConfigSize})
	if errors.Is(err, os.ErrNotExist) {
		return lock, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	if err := yaml.Unmarshal(data, lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file %s: %w", path, err)
	}
	if lock.Images == nil {
		lock.Images = map[string]string{}
	}
	return lock, nil
}

// Fresh reports whether module was last extracted from an image with the
// given fingerprint.
func (l *Lock) Fresh(module, fingerprint string) bool {
	got, ok := l.Images[module]
	return ok && got == fingerprint
}

// Save atomically writes the lock file.
func (l *Lock) Save(path string, logger zerolog.Logger) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal lock file: %w", err)
	}
	return safe.WriteFileAtomic(path, data, 0o644, logger)
}
