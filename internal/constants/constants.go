// Package constants defines shared configuration constants.
package constants

const (
	// DefaultDir is the per-user configuration directory under the home directory.
	DefaultDir = ".linemap"

	ConfigFile = "config.yaml"

	// LockFile records image fingerprints inside a batch output directory.
	LockFile = "linemap.lock.yaml"

	// DefaultOutDir receives batch tables when neither a flag nor the
	// manifest names a directory.
	DefaultOutDir = "mappings"

	// ConfigEnv overrides the base directory of DefaultDir.
	ConfigEnv = "LINEMAP_CONFIG"
)
