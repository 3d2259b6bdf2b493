package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "auto", cfg.Language)
	assert.Equal(t, "dot", cfg.Format)
	assert.Equal(t, "name", cfg.Identity)
	assert.Equal(t, runtime.NumCPU(), cfg.Jobs)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
format: mermaid
relative_paths: true
watch:
  debounce_ms: 200
ignore:
  - generated
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mermaid", cfg.Format)
	assert.True(t, cfg.RelativePaths)
	assert.Equal(t, "name", cfg.Identity)
	assert.Equal(t, "auto", cfg.Language)
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce())
	assert.Equal(t, []string{"generated"}, cfg.Ignore)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, t.TempDir(), "formt: dot\n"))
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadForProject(t *testing.T) {
	empty := t.TempDir()
	cfg, path, err := LoadForProject(empty, "")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)

	withFile := t.TempDir()
	writeConfig(t, withFile, "identity: qualified\n")
	cfg, path, err = LoadForProject(withFile, "")
	require.NoError(t, err)
	assert.Equal(t, GetConfigPath(withFile), path)
	assert.Equal(t, "qualified", cfg.Identity)

	explicit := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("format: json\n"), 0o644))
	cfg, path, err = LoadForProject(withFile, explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "name", cfg.Identity)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"language", func(c *Config) { c.Language = "python" }},
		{"format", func(c *Config) { c.Format = "svg" }},
		{"identity", func(c *Config) { c.Identity = "fuzzy" }},
		{"jobs", func(c *Config) { c.Jobs = -1 }},
		{"debounce", func(c *Config) { c.Watch.DebounceMs = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
