// Package analyzer runs the whole extraction: resolve the project, then load,
// parse and collect every file, and merge the results into one call graph.
package analyzer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zheng/cgraph/internal/graph"
	"github.com/zheng/cgraph/internal/project"
	"github.com/zheng/cgraph/internal/source"
	"github.com/zheng/cgraph/internal/syntax"
)

// Options tune a run.
type Options struct {
	// Jobs is the number of files processed concurrently; values below 2 run sequentially.
	Jobs int
	// Identity selects how function definitions are keyed.
	Identity graph.IdentityMode
	// RelativePaths records file names relative to the project root.
	RelativePaths bool
	Logger        *slog.Logger
}

// Analyzer ties a project resolver to a language parser.
type Analyzer struct {
	resolver project.Resolver
	parser   syntax.Parser
	opts     Options
	logger   *slog.Logger
}

// Result is the outcome of one successful run.
type Result struct {
	Root  string
	Files []string
	Graph *graph.CallGraph
}

// New creates an analyzer.
func New(resolver project.Resolver, parser syntax.Parser, opts Options) *Analyzer {
	if opts.Identity == "" {
		opts.Identity = graph.IdentityName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{resolver: resolver, parser: parser, opts: opts, logger: logger}
}

// Run analyzes the project at root. Any failure aborts the run and no graph is
// returned; with several failing files the first one in resolver order is reported.
func (a *Analyzer) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	files, err := a.resolver.Resolve(ctx, root)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("project resolved", "root", root, "files", len(files))

	var graphs []*graph.CallGraph
	if a.opts.Jobs > 1 && len(files) > 1 {
		graphs, err = a.collectParallel(ctx, root, files)
	} else {
		graphs, err = a.collectSequential(ctx, root, files)
	}
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(a.opts.Identity)
	for _, g := range graphs {
		builder.Merge(g)
	}

	result := &Result{Root: root, Files: files, Graph: builder.Graph()}
	a.logger.Info("call graph built",
		"files", builder.FileCount(),
		"functions", result.Graph.Len(),
		"calls", result.Graph.EdgeCount(),
		"duration", time.Since(start),
	)
	return result, nil
}

func (a *Analyzer) collectSequential(ctx context.Context, root string, files []string) ([]*graph.CallGraph, error) {
	graphs := make([]*graph.CallGraph, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := a.analyzeFile(ctx, root, path)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// collectParallel processes files on a bounded worker pool. Every file runs to
// completion so the reported error does not depend on scheduling.
func (a *Analyzer) collectParallel(ctx context.Context, root string, files []string) ([]*graph.CallGraph, error) {
	type fileResult struct {
		graph *graph.CallGraph
		err   error
	}
	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fg, err := a.analyzeFile(gctx, root, path)
			results[i] = fileResult{graph: fg, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graphs := make([]*graph.CallGraph, 0, len(files))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		graphs = append(graphs, r.graph)
	}
	return graphs, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, root, path string) (*graph.CallGraph, error) {
	src, err := source.Load(path)
	if err != nil {
		return nil, err
	}
	name := a.displayName(root, path)
	file, err := a.parser.Parse(ctx, name, src.Text)
	if err != nil {
		return nil, err
	}

	g := graph.Collect(file, name, a.opts.Identity)
	a.logger.Debug("file collected", "file", name, "functions", g.Len(), "calls", g.EdgeCount())
	return g, nil
}

// displayName is the file name recorded on edges and in qualified identities.
func (a *Analyzer) displayName(root, path string) string {
	if !a.opts.RelativePaths {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
