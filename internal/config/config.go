// Package config loads the optional .cgraph.yaml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zheng/cgraph/internal/graph"
	"github.com/zheng/cgraph/internal/render"
)

const (
	FileName = ".cgraph.yaml"

	LanguageAuto = "auto"
)

type Config struct {
	Language      string      `yaml:"language"` // auto | rust | go
	Format        string      `yaml:"format"`   // dot | json | mermaid | tree
	Identity      string      `yaml:"identity"` // name | qualified
	Jobs          int         `yaml:"jobs"`
	IncludeTests  bool        `yaml:"include_tests"`
	RelativePaths bool        `yaml:"relative_paths"`
	Output        string      `yaml:"output,omitempty"`
	SQLite        string      `yaml:"sqlite,omitempty"`
	Watch         WatchConfig `yaml:"watch"`
	Ignore        []string    `yaml:"ignore"`
}

type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

func DefaultConfig() *Config {
	return &Config{
		Language: LanguageAuto,
		Format:   string(render.FormatDOT),
		Identity: string(graph.IdentityName),
		Jobs:     runtime.NumCPU(),
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

func GetConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}

// Load reads the config file at path and fills unset values with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadForProject returns the config at explicitPath when given, otherwise the
// project's .cgraph.yaml when present, otherwise the defaults. The returned
// path is empty when no file was read.
func LoadForProject(projectRoot, explicitPath string) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := Load(explicitPath)
		return cfg, explicitPath, err
	}
	path := GetConfigPath(projectRoot)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), "", nil
		}
		return nil, "", fmt.Errorf("failed to stat config file: %w", err)
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// applyDefaults fills in values an older or partial file leaves empty.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Language == "" {
		c.Language = defaults.Language
	}
	if c.Format == "" {
		c.Format = defaults.Format
	}
	if c.Identity == "" {
		c.Identity = defaults.Identity
	}
	if c.Jobs == 0 {
		c.Jobs = defaults.Jobs
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = defaults.Watch.DebounceMs
	}
}

// Validate rejects unknown enum values and impossible numbers.
func (c *Config) Validate() error {
	switch c.Language {
	case LanguageAuto, "rust", "go":
	default:
		return fmt.Errorf("invalid language %q (valid: auto, rust, go)", c.Language)
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := graph.ParseIdentityMode(c.Identity); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return fmt.Errorf("invalid jobs %d: must be at least 1", c.Jobs)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("invalid watch.debounce_ms %d", c.Watch.DebounceMs)
	}
	return nil
}

// Debounce returns the watch debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}
