package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/cgraph/internal/analyzer"
	"github.com/zheng/cgraph/internal/config"
	"github.com/zheng/cgraph/internal/graph"
	"github.com/zheng/cgraph/internal/project"
	"github.com/zheng/cgraph/internal/render"
	"github.com/zheng/cgraph/internal/storage"
	"github.com/zheng/cgraph/internal/syntax"
	"github.com/zheng/cgraph/internal/syntax/golang"
	"github.com/zheng/cgraph/internal/syntax/rust"
)

type rootOptions struct {
	lang         string
	format       string
	identity     string
	jobs         int
	includeTests bool
	relative     bool
	output       string
	sqlite       string
	watch        bool
	debounce     time.Duration
	configPath   string
	verbose      bool
}

// NewRootCmd builds the cgraph command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cgraph [project-path]",
		Short: "Static call-graph extractor for Rust and Go projects",
		Long: `cgraph discovers the source files of a project, records every direct call
made inside each function body, and prints the call graph as a Graphviz digraph.

Callees are recorded as written: method calls, closures and macro invocations are
not resolved and are left out.

Examples:
  cgraph                          # analyze the project in the current directory
  cgraph ./my-crate | dot -Tsvg   # render with Graphviz
  cgraph . --format json -o graph.json
  cgraph . --watch --sqlite .cgraph.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runRoot(cmd, root, opts)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opts.lang, "lang", config.LanguageAuto, "project language: auto, rust, go")
	f.StringVarP(&opts.format, "format", "f", string(render.FormatDOT), "output format: dot, json, mermaid, tree")
	f.StringVar(&opts.identity, "identity", string(graph.IdentityName), "function identity: name (bare name) or qualified (file::scope::name)")
	f.IntVar(&opts.jobs, "jobs", 0, "files processed in parallel (default: number of CPUs)")
	f.BoolVar(&opts.includeTests, "include-tests", false, "include Go _test.go files")
	f.BoolVar(&opts.relative, "relative", false, "record file names relative to the project root")
	f.StringVarP(&opts.output, "output", "o", "", "write the graph to a file instead of stdout")
	f.StringVar(&opts.sqlite, "sqlite", "", "also export the graph to this SQLite database")
	f.BoolVarP(&opts.watch, "watch", "w", false, "re-run when source files change")
	f.DurationVar(&opts.debounce, "debounce", 0, "quiet period before a watch re-run (default 500ms)")
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default: <project>/"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	RegisterCommands(rootCmd)
	return rootCmd
}

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(showCmd())
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cgraph:", err)
		return 1
	}
	return 0
}

// pipeline is everything one analysis run needs, built once per invocation.
type pipeline struct {
	root     string
	cfg      *config.Config
	analyzer *analyzer.Analyzer
	renderer render.Renderer
	parser   syntax.Parser
	logger   *slog.Logger
}

func runRoot(cmd *cobra.Command, root string, opts *rootOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	cfg, err := resolveConfig(cmd, root, opts, logger)
	if err != nil {
		return err
	}
	p, err := newPipeline(root, cfg, logger)
	if err != nil {
		return err
	}

	if !cfg.watchEnabled {
		return p.runOnce(cmd.Context(), cmd)
	}
	return runWatch(cmd, p)
}

// effectiveConfig is the file config after flag overrides.
type effectiveConfig struct {
	*config.Config
	watchEnabled bool
}

// resolveConfig applies explicit flags over the config file over defaults.
func resolveConfig(cmd *cobra.Command, root string, opts *rootOptions, logger *slog.Logger) (*effectiveConfig, error) {
	cfg, path, err := config.LoadForProject(root, opts.configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.Language = opts.lang
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("identity") {
		cfg.Identity = opts.identity
	}
	if flags.Changed("jobs") && opts.jobs > 0 {
		cfg.Jobs = opts.jobs
	}
	if flags.Changed("include-tests") {
		cfg.IncludeTests = opts.includeTests
	}
	if flags.Changed("relative") {
		cfg.RelativePaths = opts.relative
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("sqlite") {
		cfg.SQLite = opts.sqlite
	}
	if flags.Changed("debounce") {
		cfg.Watch.DebounceMs = int(opts.debounce / time.Millisecond)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &effectiveConfig{Config: cfg, watchEnabled: opts.watch}, nil
}

func newPipeline(root string, cfg *effectiveConfig, logger *slog.Logger) (*pipeline, error) {
	lang := cfg.Language
	if lang == config.LanguageAuto {
		detected, err := project.Detect(root)
		if err != nil {
			return nil, err
		}
		lang = detected
		logger.Debug("language detected", "language", lang)
	}

	registry := syntax.NewRegistry(rust.New(), golang.New())
	parser, err := registry.ForLanguage(lang)
	if err != nil {
		return nil, err
	}
	resolver, err := project.New(lang, project.Options{IncludeTests: cfg.IncludeTests, Logger: logger})
	if err != nil {
		return nil, err
	}

	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(format)
	if err != nil {
		return nil, err
	}
	identity, err := graph.ParseIdentityMode(cfg.Identity)
	if err != nil {
		return nil, err
	}

	a := analyzer.New(resolver, parser, analyzer.Options{
		Jobs:          cfg.Jobs,
		Identity:      identity,
		RelativePaths: cfg.RelativePaths,
		Logger:        logger,
	})
	return &pipeline{
		root:     root,
		cfg:      cfg.Config,
		analyzer: a,
		renderer: renderer,
		parser:   parser,
		logger:   logger,
	}, nil
}

// runOnce analyzes, renders into memory, exports and only then writes the
// output, so a failed run never leaves partial output behind.
func (p *pipeline) runOnce(ctx context.Context, cmd *cobra.Command) error {
	res, err := p.analyzer.Run(ctx, p.root)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, res.Graph); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if p.cfg.SQLite != "" {
		if err := exportSQLite(ctx, p.cfg.SQLite, res, p.logger); err != nil {
			return err
		}
	}

	return writeOutput(cmd.OutOrStdout(), p.cfg.Output, buf.Bytes())
}

func exportSQLite(ctx context.Context, path string, res *analyzer.Result, logger *slog.Logger) error {
	db, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("sqlite export: %w", err)
	}
	defer db.Close()

	root := res.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	runID, err := db.SaveGraph(ctx, root, res.Graph)
	if err != nil {
		return fmt.Errorf("sqlite export: %w", err)
	}
	logger.Info("graph exported", "db", path, "run", runID)
	return nil
}
