package project

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

const cargoManifest = "Cargo.toml"

// CommandRunner runs an external command in dir and returns its stdout.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec; stderr is folded into the error.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// CargoResolver lists the root source file of every target of the first
// package in Cargo.toml, in the order cargo declares them.
type CargoResolver struct {
	// Run defaults to ExecRunner.
	Run    CommandRunner
	Logger *slog.Logger
}

type cargoMetadata struct {
	Packages []struct {
		Name    string `json:"name"`
		Targets []struct {
			Name    string   `json:"name"`
			Kind    []string `json:"kind"`
			SrcPath string   `json:"src_path"`
		} `json:"targets"`
	} `json:"packages"`
}

// Resolve implements Resolver. When the cargo binary is not installed the
// manifest is read directly and Cargo's default target layout is assumed.
func (r *CargoResolver) Resolve(ctx context.Context, root string) ([]string, error) {
	manifest := filepath.Join(root, cargoManifest)
	if !fileExists(manifest) {
		return nil, &ProjectResolutionError{Root: root, Err: ErrManifestNotFound}
	}
	log := logger(r.Logger)

	run := r.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, root, "cargo", "metadata", "--format-version", "1", "--no-deps", "--manifest-path", manifest)
	if errors.Is(err, exec.ErrNotFound) {
		log.Warn("cargo not found, reading Cargo.toml directly", "manifest", manifest)
		files, err := manifestTargets(root)
		if err != nil {
			return nil, &ProjectResolutionError{Root: root, Err: err}
		}
		return files, nil
	}
	if err != nil {
		return nil, &ProjectResolutionError{Root: root, Err: fmt.Errorf("cargo metadata: %w", err)}
	}

	var meta cargoMetadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, &ProjectResolutionError{Root: root, Err: fmt.Errorf("decode cargo metadata: %w", err)}
	}
	if len(meta.Packages) == 0 {
		return nil, &ProjectResolutionError{Root: root, Err: ErrNoPackage}
	}

	pkg := meta.Packages[0]
	if len(meta.Packages) > 1 {
		log.Info("workspace has several packages, analyzing the first", "package", pkg.Name, "packages", len(meta.Packages))
	}
	files := make([]string, 0, len(pkg.Targets))
	for _, t := range pkg.Targets {
		log.Debug("cargo target", "name", t.Name, "kind", t.Kind, "src", t.SrcPath)
		files = append(files, t.SrcPath)
	}
	return dedupe(files), nil
}
