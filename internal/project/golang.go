package project

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

const goManifest = "go.mod"

// GoResolver lists the Go files of every package below root.
type GoResolver struct {
	IncludeTests bool
	Logger       *slog.Logger
}

// Resolve implements Resolver. Files are returned sorted so runs are stable.
func (r *GoResolver) Resolve(ctx context.Context, root string) ([]string, error) {
	if !fileExists(filepath.Join(root, goManifest)) {
		return nil, &ProjectResolutionError{Root: root, Err: ErrManifestNotFound}
	}
	log := logger(r.Logger)

	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
		Dir:     root,
		Tests:   r.IncludeTests,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, &ProjectResolutionError{Root: root, Err: fmt.Errorf("load packages: %w", err)}
	}

	// Package errors are not fatal here: the parser reports broken files itself.
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			log.Warn("package error", "package", pkg.PkgPath, "error", e.Msg)
		}
	})

	var files []string
	for _, pkg := range pkgs {
		for _, f := range pkg.GoFiles {
			if !r.IncludeTests && strings.HasSuffix(f, "_test.go") {
				continue
			}
			files = append(files, f)
		}
	}
	files = dedupe(files)
	if len(files) == 0 {
		return nil, &ProjectResolutionError{Root: root, Err: ErrNoPackage}
	}
	sort.Strings(files)
	log.Debug("go packages loaded", "packages", len(pkgs), "files", len(files))
	return files, nil
}
