package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/linemap/internal/constants"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLoader_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LINEMAP_CONFIG", dir)

	loader := NewLoader()
	assert.Equal(t, filepath.Join(dir, constants.DefaultDir, constants.ConfigFile), loader.ConfigPath())
}

func TestLoader_Load_NotExists(t *testing.T) {
	loader := &Loader{homeDir: t.TempDir()}

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_Load(t *testing.T) {
	home := t.TempDir()
	loader := &Loader{homeDir: home}
	writeFile(t, loader.ConfigPath(), `
log:
  level: warn
  pretty: false
output:
  format: json
`)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, "json", cfg.Output.Format)

	logCfg := cfg.Logging()
	assert.Equal(t, "warn", logCfg.Level)
	assert.False(t, logCfg.Pretty)
	assert.Equal(t, os.Stderr, logCfg.Output)
}

func TestLoader_Load_PartialFileKeepsDefaults(t *testing.T) {
	loader := &Loader{homeDir: t.TempDir()}
	writeFile(t, loader.ConfigPath(), "log:\n  level: debug\n")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "csv", cfg.Output.Format)
}

func TestLoader_Load_EnvWinsOverFile(t *testing.T) {
	loader := &Loader{homeDir: t.TempDir()}
	writeFile(t, loader.ConfigPath(), "output:\n  format: json\n")
	t.Setenv("LINEMAP_OUTPUT_FORMAT", "text")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("required file missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.yaml"), false)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		writeFile(t, path, "log: [unterminated")
		_, err := LoadFile(path, false)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		writeFile(t, path, "log:\n  level: loud\noutput:\n  format: xml\n")
		_, err := LoadFile(path, false)
		require.Error(t, err)

		var multi *MultiValidationError
		require.ErrorAs(t, err, &multi)
		assert.Len(t, multi.Errors, 2)
	})
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "images.yaml")
	writeFile(t, path, `
out_dir: mappings
images:
  - path: ./build/server
  - path: /opt/lib/libraft.so.1
    module: libraft.so
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "mappings"), m.OutDir)
	require.Len(t, m.Images, 2)
	assert.Equal(t, filepath.Join(dir, "build", "server"), m.Images[0].Path)
	assert.Equal(t, "server", m.Images[0].Module)
	assert.Equal(t, "/opt/lib/libraft.so.1", m.Images[1].Path)
	assert.Equal(t, "libraft.so", m.Images[1].Module)
}

func TestLoadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"no images":        "out_dir: out\n",
		"missing path":     "images:\n  - module: x\n",
		"duplicate module": "images:\n  - path: a/server\n  - path: b/server\n",
		"separator":        "images:\n  - path: a\n    module: x/y\n",
		"malformed yaml":   "images: {",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			writeFile(t, path, content)
			_, err := LoadManifest(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadManifest(filepath.Join(dir, "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
