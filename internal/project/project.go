// Package project discovers the source files that make up one project.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Language names, matching the parser registry.
const (
	LangRust = "rust"
	LangGo   = "go"
)

var (
	// ErrManifestNotFound means the root has no manifest the resolver understands.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrNoPackage means the manifest declares no package.
	ErrNoPackage = errors.New("no package found")
)

// Resolver returns the source files of the project at root, in analysis order.
type Resolver interface {
	Resolve(ctx context.Context, root string) ([]string, error)
}

// ProjectResolutionError wraps any failure to turn a root into a file list.
type ProjectResolutionError struct {
	Root string
	Err  error
}

func (e *ProjectResolutionError) Error() string {
	return fmt.Sprintf("resolve project %s: %v", e.Root, e.Err)
}

func (e *ProjectResolutionError) Unwrap() error {
	return e.Err
}

// Detect picks the language from the manifest at root. Cargo.toml wins over go.mod.
func Detect(root string) (string, error) {
	if fileExists(filepath.Join(root, cargoManifest)) {
		return LangRust, nil
	}
	if fileExists(filepath.Join(root, goManifest)) {
		return LangGo, nil
	}
	return "", &ProjectResolutionError{Root: root, Err: ErrManifestNotFound}
}

// Options configure the resolvers built by New.
type Options struct {
	IncludeTests bool
	Logger       *slog.Logger
}

// New returns the resolver for lang.
func New(lang string, opts Options) (Resolver, error) {
	switch lang {
	case LangRust:
		return &CargoResolver{Logger: opts.Logger}, nil
	case LangGo:
		return &GoResolver{IncludeTests: opts.IncludeTests, Logger: opts.Logger}, nil
	}
	return nil, fmt.Errorf("no project resolver for language %q", lang)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

// dedupe keeps the first occurrence of every path.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
