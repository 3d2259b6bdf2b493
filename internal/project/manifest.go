package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

type manifestTarget struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type manifestFile struct {
	Package *struct {
		Name  string `toml:"name"`
		Build any    `toml:"build"`
	} `toml:"package"`
	Lib     *manifestTarget  `toml:"lib"`
	Bin     []manifestTarget `toml:"bin"`
	Example []manifestTarget `toml:"example"`
	Test    []manifestTarget `toml:"test"`
	Bench   []manifestTarget `toml:"bench"`
}

// manifestTargets approximates `cargo metadata` target discovery from
// Cargo.toml alone: lib, bins, examples, tests, benches, then the build script.
func manifestTargets(root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, cargoManifest))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cargoManifest, err)
	}
	var m manifestFile
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cargoManifest, err)
	}
	if m.Package == nil {
		return nil, ErrNoPackage
	}

	abs := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }
	var files []string
	add := func(rel string) {
		if p := abs(rel); fileExists(p) {
			files = append(files, p)
		}
	}

	switch {
	case m.Lib != nil && m.Lib.Path != "":
		add(m.Lib.Path)
	default:
		add("src/lib.rs")
	}

	explicitMain := false
	for _, b := range m.Bin {
		if b.Path == "" && b.Name == m.Package.Name {
			explicitMain = true
			add("src/main.rs")
			continue
		}
		if b.Path != "" {
			add(b.Path)
			continue
		}
		add("src/bin/" + b.Name + ".rs")
	}
	if !explicitMain {
		add("src/main.rs")
	}
	files = append(files, autoTargets(root, "src/bin")...)

	for _, group := range []struct {
		dir      string
		explicit []manifestTarget
	}{
		{"examples", m.Example},
		{"tests", m.Test},
		{"benches", m.Bench},
	} {
		for _, t := range group.explicit {
			if t.Path != "" {
				add(t.Path)
			}
		}
		files = append(files, autoTargets(root, group.dir)...)
	}

	switch build := m.Package.Build.(type) {
	case string:
		add(build)
	case bool:
		if build {
			add("build.rs")
		}
	default:
		add("build.rs")
	}

	files = dedupe(files)
	if len(files) == 0 {
		return nil, ErrNoPackage
	}
	return files, nil
}

// autoTargets lists dir/*.rs and dir/*/main.rs in name order.
func autoTargets(root, dir string) []string {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		p := filepath.Join(root, filepath.FromSlash(dir), e.Name())
		switch {
		case e.IsDir():
			if main := filepath.Join(p, "main.rs"); fileExists(main) {
				files = append(files, main)
			}
		case filepath.Ext(e.Name()) == ".rs":
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files
}
