package safe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultMaxFileSize is the default maximum file size for safe file operations (1MB).
const DefaultMaxFileSize = 1 << 20

// ReadFileOptions configures the behavior of ReadFile.
type ReadFileOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means DefaultMaxFileSize.
	MaxSize int64
	// AllowSymlinks allows reading through symlinks. Default is false for security.
	AllowSymlinks bool
}

// ReadFile reads a file with security validations.
// It rejects symlinks by default to prevent file inclusion attacks,
// validates file size, and ensures only regular files are read.
func ReadFile(path string, opts *ReadFileOptions) ([]byte, error) {
	if opts == nil {
		opts = &ReadFileOptions{}
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	// Clean and validate the path.
	cleanPath := filepath.Clean(path)

	// Check file info without following symlinks.
	info, err := os.Lstat(cleanPath)
	if err != nil {
		return nil, err
	}

	// Reject symlinks unless explicitly allowed.
	if info.Mode()&os.ModeSymlink != 0 && !opts.AllowSymlinks {
		return nil, fmt.Errorf("file %q is a symlink, which is not allowed for security reasons", path)
	}

	// If it's a symlink and allowed, follow it to get the real file info.
	if info.Mode()&os.ModeSymlink != 0 {
		info, err = os.Stat(cleanPath)
		if err != nil {
			return nil, err
		}
	}

	// Reject non-regular files.
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}

	// Check file size to prevent resource exhaustion.
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file exceeds maximum allowed size of %d bytes", maxSize)
	}

	return os.ReadFile(cleanPath)
}

// WriteFileAtomic replaces path with data. The data is written to a temp
// file in the same directory, synced, then renamed over path, so readers
// see either the old contents or the new ones.
func WriteFileAtomic(path string, data []byte, perm os.FileMode, logger zerolog.Logger) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer RemoveFile(tmpFile, logger) // Clean up if something fails

	if _, err := tmpFile.Write(data); err != nil {
		Close(tmpFile, logger, "failed to close temp file")
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		Close(tmpFile, logger, "failed to close temp file")
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to set permissions on temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	return nil
}

// Close closes gracefully a Closer interface, handling and logging the error.
func Close(c io.Closer, logger zerolog.Logger, msg string) {
	if err := c.Close(); err != nil {
		logger.Error().Err(err).Msg(msg)
	}
}

// RemoveFile removes gracefully a file, handling and logging the error.
// A file that no longer exists is not an error.
func RemoveFile(f *os.File, logger zerolog.Logger) {
	if f == nil {
		return
	}
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error().Err(err).Msg("failed to remove file")
	}
}
