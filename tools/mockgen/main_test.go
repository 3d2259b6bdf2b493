package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/cgraph/internal/analyzer"
	"github.com/zheng/cgraph/internal/graph"
	"github.com/zheng/cgraph/internal/project"
	"github.com/zheng/cgraph/internal/source"
	"github.com/zheng/cgraph/internal/syntax/golang"
	"github.com/zheng/cgraph/internal/syntax/rust"
)

func smallConfig(t *testing.T, lang string) *Config {
	return &Config{
		Lang:           lang,
		OutputDir:      t.TempDir(),
		NumPackages:    4,
		NumFuncsPerPkg: 12,
		MaxDepth:       3,
		CallDensity:    2,
		Seed:           7,
	}
}

func noCargo(context.Context, string, string, ...string) ([]byte, error) {
	return nil, &exec.Error{Name: "cargo", Err: exec.ErrNotFound}
}

func TestGenerateProject_RustGraphMatches(t *testing.T) {
	cfg := smallConfig(t, "rust")
	stats, err := generateProject(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 4*12+1, stats.Functions)
	assert.Positive(t, stats.Calls)

	a := analyzer.New(&project.CargoResolver{Run: noCargo}, rust.New(), analyzer.Options{Jobs: 2})
	res, err := a.Run(context.Background(), cfg.OutputDir)
	require.NoError(t, err)

	assert.Len(t, res.Files, 2)
	assert.Equal(t, stats.Functions, res.Graph.Len())
	// the call in main.rs sits inside println! and is not recorded
	assert.Equal(t, stats.Calls, res.Graph.EdgeCount())
}

func TestGenerateProject_GoFilesParse(t *testing.T) {
	cfg := smallConfig(t, "go")
	stats, err := generateProject(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Files)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "go.mod"))

	p := golang.New()
	functions, calls := 0, 0
	for i := 0; i < cfg.NumPackages; i++ {
		path := filepath.Join(cfg.OutputDir, generateFuncRegistry(cfg)[i*cfg.NumFuncsPerPkg].Package, "code.go")
		src, err := source.Load(path)
		require.NoError(t, err)
		file, err := p.Parse(context.Background(), path, src.Text)
		require.NoError(t, err)
		g := graph.Collect(file, path, graph.IdentityName)
		functions += g.Len()
		calls += g.EdgeCount()
	}
	assert.Equal(t, stats.Functions, functions)
	assert.Equal(t, stats.Calls, calls)
}

func TestGenerateProject_Deterministic(t *testing.T) {
	first := smallConfig(t, "rust")
	second := smallConfig(t, "rust")
	_, err := generateProject(first)
	require.NoError(t, err)
	_, err = generateProject(second)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(first.OutputDir, "src", "lib.rs"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(second.OutputDir, "src", "lib.rs"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGenerateProject_Invalid(t *testing.T) {
	cfg := smallConfig(t, "python")
	_, err := generateProject(cfg)
	assert.Error(t, err)

	cfg = smallConfig(t, "rust")
	cfg.NumPackages = 0
	_, err = generateProject(cfg)
	assert.Error(t, err)
}
