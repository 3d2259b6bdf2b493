// mockgen writes a synthetic Rust crate or Go module with a layered call
// graph, for load testing cgraph on projects of a chosen size.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the mock project configuration
type Config struct {
	Lang           string // rust | go
	OutputDir      string
	NumPackages    int
	NumFuncsPerPkg int
	MaxDepth       int
	CallDensity    float64 // average calls per function
	Seed           uint64
}

// FuncInfo represents a function in the mock project
type FuncInfo struct {
	Package string
	Name    string
	Depth   int
	PkgIdx  int
}

// Stats is what was generated, for comparison with the extracted graph.
type Stats struct {
	Files     int
	Functions int
	Calls     int
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.Lang, "lang", "rust", "project language: rust, go")
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "output directory")
	flag.IntVar(&cfg.NumPackages, "pkgs", 20, "number of modules/packages")
	flag.IntVar(&cfg.NumFuncsPerPkg, "funcs", 100, "functions per module/package")
	flag.IntVar(&cfg.MaxDepth, "depth", 10, "maximum call depth")
	flag.Float64Var(&cfg.CallDensity, "density", 3.0, "average calls per function")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.Parse()

	stats, err := generateProject(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mockgen: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("generated %s project in %s\n", cfg.Lang, cfg.OutputDir)
	fmt.Printf("  files:     %d\n", stats.Files)
	fmt.Printf("  functions: %d\n", stats.Functions)
	fmt.Printf("  calls:     %d\n", stats.Calls)
	fmt.Printf("\nnext:\n  cgraph %s --format tree\n", cfg.OutputDir)
}

func generateProject(cfg *Config) (Stats, error) {
	if cfg.NumPackages < 1 || cfg.NumFuncsPerPkg < 1 || cfg.MaxDepth < 0 || cfg.CallDensity < 1 {
		return Stats{}, fmt.Errorf("invalid size: %d packages, %d functions, depth %d, density %.1f",
			cfg.NumPackages, cfg.NumFuncsPerPkg, cfg.MaxDepth, cfg.CallDensity)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return Stats{}, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	allFuncs := generateFuncRegistry(cfg)
	funcsByDepth := organizeFuncsByDepth(allFuncs, cfg.MaxDepth)

	calls := make(map[*FuncInfo][]*FuncInfo, len(allFuncs))
	stats := Stats{Functions: len(allFuncs)}
	for _, fn := range allFuncs {
		calls[fn] = generateCalls(rng, fn, funcsByDepth, cfg)
		stats.Calls += len(calls[fn])
	}

	var err error
	switch cfg.Lang {
	case "rust":
		err = writeRustCrate(cfg, allFuncs, calls, &stats)
	case "go":
		err = writeGoModule(cfg, allFuncs, calls, &stats)
	default:
		err = fmt.Errorf("unsupported language %q", cfg.Lang)
	}
	return stats, err
}

func generateFuncRegistry(cfg *Config) []*FuncInfo {
	prefix := "f"
	if cfg.Lang == "go" {
		prefix = "F"
	}
	var funcs []*FuncInfo
	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		pkgName := fmt.Sprintf("m%02d", pkgIdx)
		for funcIdx := 0; funcIdx < cfg.NumFuncsPerPkg; funcIdx++ {
			funcs = append(funcs, &FuncInfo{
				Package: pkgName,
				// globally unique so name identity keeps every function apart
				Name:   fmt.Sprintf("%s%02d_%04d", prefix, pkgIdx, funcIdx),
				PkgIdx: pkgIdx,
			})
		}
	}
	return funcs
}

func organizeFuncsByDepth(allFuncs []*FuncInfo, maxDepth int) [][]*FuncInfo {
	funcsByDepth := make([][]*FuncInfo, maxDepth+1)
	for i, fn := range allFuncs {
		fn.Depth = i % (maxDepth + 1)
		funcsByDepth[fn.Depth] = append(funcsByDepth[fn.Depth], fn)
	}
	return funcsByDepth
}

// generateCalls picks callees only from deeper layers and from the same or
// higher-numbered packages, so Go imports never cycle.
func generateCalls(rng *rand.Rand, fn *FuncInfo, funcsByDepth [][]*FuncInfo, cfg *Config) []*FuncInfo {
	nextDepth := fn.Depth + 1
	if nextDepth >= len(funcsByDepth) || len(funcsByDepth[nextDepth]) == 0 {
		return nil
	}

	numCalls := rng.IntN(int(cfg.CallDensity*2)) + 1
	if numCalls > int(cfg.CallDensity*1.5) {
		numCalls = int(cfg.CallDensity)
	}

	var calls []*FuncInfo
	seen := make(map[*FuncInfo]bool)
	for i := 0; i < numCalls; i++ {
		var target *FuncInfo
		if rng.Float64() < 0.8 {
			target = funcsByDepth[nextDepth][rng.IntN(len(funcsByDepth[nextDepth]))]
		} else {
			var deeper []*FuncInfo
			for d := nextDepth; d < len(funcsByDepth); d++ {
				deeper = append(deeper, funcsByDepth[d]...)
			}
			target = deeper[rng.IntN(len(deeper))]
		}
		if target == fn || seen[target] || target.PkgIdx < fn.PkgIdx {
			continue
		}
		calls = append(calls, target)
		seen[target] = true
	}
	return calls
}

// writeRustCrate puts every module inline in src/lib.rs, since only target
// root files are analyzed, and adds a src/main.rs entry point.
func writeRustCrate(cfg *Config, allFuncs []*FuncInfo, calls map[*FuncInfo][]*FuncInfo, stats *Stats) error {
	manifest := "[package]\nname = \"mockcrate\"\nversion = \"0.1.0\"\nedition = \"2021\"\n"
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		return err
	}
	srcDir := filepath.Join(cfg.OutputDir, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return err
	}

	var b strings.Builder
	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		pkgFuncs := allFuncs[pkgIdx*cfg.NumFuncsPerPkg : (pkgIdx+1)*cfg.NumFuncsPerPkg]
		fmt.Fprintf(&b, "pub mod %s {\n", pkgFuncs[0].Package)
		for _, fn := range pkgFuncs {
			fmt.Fprintf(&b, "    pub fn %s(input: i64) -> i64 {\n", fn.Name)
			b.WriteString("        let mut result = input;\n")
			for i, callee := range calls[fn] {
				target := callee.Name
				if callee.Package != fn.Package {
					target = "crate::" + callee.Package + "::" + callee.Name
				}
				fmt.Fprintf(&b, "        result += %s(result + %d);\n", target, i)
			}
			b.WriteString("        result\n    }\n\n")
		}
		b.WriteString("}\n\n")
	}
	if err := os.WriteFile(filepath.Join(srcDir, "lib.rs"), []byte(b.String()), 0o644); err != nil {
		return err
	}

	entry := allFuncs[0]
	mainRS := fmt.Sprintf("fn main() {\n    println!(\"{}\", mockcrate::%s::%s(1));\n}\n", entry.Package, entry.Name)
	if err := os.WriteFile(filepath.Join(srcDir, "main.rs"), []byte(mainRS), 0o644); err != nil {
		return err
	}

	stats.Files = 2
	stats.Functions++
	return nil
}

// writeGoModule writes one package directory per module.
func writeGoModule(cfg *Config, allFuncs []*FuncInfo, calls map[*FuncInfo][]*FuncInfo, stats *Stats) error {
	gomod := "module github.com/example/mockproject\n\ngo 1.24\n"
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "go.mod"), []byte(gomod), 0o644); err != nil {
		return err
	}

	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		pkgFuncs := allFuncs[pkgIdx*cfg.NumFuncsPerPkg : (pkgIdx+1)*cfg.NumFuncsPerPkg]
		pkgName := pkgFuncs[0].Package
		pkgDir := filepath.Join(cfg.OutputDir, pkgName)
		if err := os.MkdirAll(pkgDir, 0o755); err != nil {
			return err
		}

		imports := make(map[string]bool)
		var body strings.Builder
		for _, fn := range pkgFuncs {
			fmt.Fprintf(&body, "func %s(input int) int {\n\tresult := input\n", fn.Name)
			for i, callee := range calls[fn] {
				target := callee.Name
				if callee.Package != pkgName {
					target = callee.Package + "." + callee.Name
					imports[callee.Package] = true
				}
				fmt.Fprintf(&body, "\tresult += %s(result + %d)\n", target, i)
			}
			body.WriteString("\treturn result\n}\n\n")
		}

		var b strings.Builder
		fmt.Fprintf(&b, "package %s\n\n", pkgName)
		if len(imports) > 0 {
			b.WriteString("import (\n")
			for i := pkgIdx + 1; i < cfg.NumPackages; i++ {
				name := fmt.Sprintf("m%02d", i)
				if imports[name] {
					fmt.Fprintf(&b, "\t\"github.com/example/mockproject/%s\"\n", name)
				}
			}
			b.WriteString(")\n\n")
		}
		b.WriteString(body.String())

		if err := os.WriteFile(filepath.Join(pkgDir, "code.go"), []byte(b.String()), 0o644); err != nil {
			return err
		}
		stats.Files++
	}
	return nil
}
