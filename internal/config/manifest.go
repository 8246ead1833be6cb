package config

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/linemap/internal/safe"
)

// Manifest lists the images of one batch run.
type Manifest struct {
	// OutDir receives one <module>.csv per image. Relative paths are
	// resolved against the manifest directory.
	OutDir string       `yaml:"out_dir"`
	Images []ImageEntry `yaml:"images"`
}

// ImageEntry is one binary of a batch.
type ImageEntry struct {
	Path   string `yaml:"path"`
	Module string `yaml:"module,omitempty"`
}

// ModuleName returns the module override or the base name of the image.
func (e ImageEntry) ModuleName() string {
	if e.Module != "" {
		return e.Module
	}
	return filepath.Base(e.Path)
}

// LoadManifest reads and validates a batch manifest. Relative paths inside
// it are made relative to the manifest's own directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := safe.ReadFile(path, &safe.ReadFileOptions{MaxSize: maxConfigSize})
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if m.OutDir != "" {
		m.OutDir = resolve(base, m.OutDir)
	}
	for i := range m.Images {
		m.Images[i].Module = m.Images[i].ModuleName()
		m.Images[i].Path = resolve(base, m.Images[i].Path)
	}
	return &m, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
