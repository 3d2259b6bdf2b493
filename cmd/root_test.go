package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/cgraph/internal/config"
)

const crateManifest = `[package]
name = "demo"
version = "0.1.0"
edition = "2021"
`

const crateMain = `fn main() {
    helper();
    util::log();
}

fn helper() {}
`

const crateDOT = `digraph G {
    "main" [label="main"];
    "helper" [label="helper"];
    "main" -> "helper" [label="src/main.rs:2:5"];
    "main" -> "util::log" [label="src/main.rs:3:5"];
}
`

func writeCrate(t *testing.T, mainRS string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte(crateManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte(mainRS), 0o644))
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRoot_DOTToStdout(t *testing.T) {
	root := writeCrate(t, crateMain)

	out, _, err := execute(t, root, "--relative")
	require.NoError(t, err)
	assert.Equal(t, crateDOT, out)
}

func TestRoot_JSONToFile(t *testing.T) {
	root := writeCrate(t, crateMain)
	outPath := filepath.Join(t.TempDir(), "graph.json")

	stdout, _, err := execute(t, root, "--lang", "rust", "--relative", "--format", "json",
		"--identity", "qualified", "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc struct {
		Identity  string `json:"identity"`
		Functions []struct {
			ID string `json:"id"`
		} `json:"functions"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "qualified", doc.Identity)
	require.Len(t, doc.Functions, 2)
	assert.Equal(t, "src/main.rs::main", doc.Functions[0].ID)
}

func TestRoot_FlagsOverrideConfigFile(t *testing.T) {
	root := writeCrate(t, crateMain)
	require.NoError(t, os.WriteFile(config.GetConfigPath(root),
		[]byte("format: json\nrelative_paths: true\n"), 0o644))

	out, _, err := execute(t, root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"), "config file format applies: %q", out)

	out, _, err = execute(t, root, "--format", "dot")
	require.NoError(t, err)
	assert.Equal(t, crateDOT, out)
}

func TestRoot_SyntaxErrorLeavesNoOutput(t *testing.T) {
	root := writeCrate(t, "fn main() {\n    helper(\n")
	outPath := filepath.Join(t.TempDir(), "graph.dot")

	stdout, _, err := execute(t, root, "-o", outPath)
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.NoFileExists(t, outPath)
}

func TestRoot_MissingManifest(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), "--lang", "rust")
	assert.Error(t, err)
}

func TestRoot_InvalidFlagValue(t *testing.T) {
	root := writeCrate(t, crateMain)
	_, _, err := execute(t, root, "--format", "svg")
	assert.Error(t, err)

	_, _, err = execute(t, root, "--identity", "fuzzy")
	assert.Error(t, err)
}

func TestSQLiteExportAndQuery(t *testing.T) {
	root := writeCrate(t, crateMain)
	dbPath := filepath.Join(t.TempDir(), "graph.db")

	_, _, err := execute(t, root, "--relative", "--sqlite", dbPath)
	require.NoError(t, err)

	out, _, err := execute(t, "query", "--db", dbPath, "callees", "main")
	require.NoError(t, err)
	assert.Equal(t, "helper\tsrc/main.rs:2:5\nutil::log\tsrc/main.rs:3:5\n", out)

	out, _, err = execute(t, "query", "--db", dbPath, "callers", "helper", "--json")
	require.NoError(t, err)
	var callers []string
	require.NoError(t, json.Unmarshal([]byte(out), &callers))
	assert.Equal(t, []string{"main"}, callers)

	out, _, err = execute(t, "query", "--db", dbPath, "reach", "main")
	require.NoError(t, err)
	assert.Equal(t, "helper\nutil::log\n", out)

	out, _, err = execute(t, "show", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, crateDOT, out)

	out, _, err = execute(t, "runs", "--db", dbPath, "--json")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.EqualValues(t, 2, runs[0]["functions"])
	assert.EqualValues(t, 2, runs[0]["calls"])
}

func TestQuery_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.db")
	_, _, err := execute(t, "query", "--db", path, "callees", "main")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, path)
}

func TestWriteOutput(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, writeOutput(&stdout, "", []byte("x")))
	assert.Equal(t, "x", stdout.String())

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, writeOutput(&stdout, path, []byte("new")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file cleaned up")
}
