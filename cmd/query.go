package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/cgraph/internal/graph"
	"github.com/zheng/cgraph/internal/render"
	"github.com/zheng/cgraph/internal/storage"
)

const defaultDBPath = ".cgraph.db"

// dbOptions selects a database and one of its runs.
type dbOptions struct {
	path  string
	runID string
}

func (o *dbOptions) bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.path, "db", defaultDBPath, "SQLite database written by --sqlite")
	cmd.PersistentFlags().StringVar(&o.runID, "run", "", "run id (default: latest run)")
}

// open opens an existing database and picks the requested run.
func (o *dbOptions) open(ctx context.Context) (*storage.DB, *storage.Run, error) {
	if _, err := os.Stat(o.path); err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db, err := storage.Open(o.path)
	if err != nil {
		return nil, nil, err
	}

	var run *storage.Run
	if o.runID == "" {
		run, err = db.LatestRun(ctx)
	} else {
		run, err = db.GetRun(ctx, o.runID)
	}
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, run, nil
}

func queryCmd() *cobra.Command {
	opts := &dbOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a call graph exported with --sqlite",
	}
	opts.bind(cmd)

	cmd.AddCommand(calleesCmd(opts), callersCmd(opts), reachCmd(opts))
	return cmd
}

func calleesCmd(opts *dbOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "callees <function>",
		Short: "List the calls made by a function, in source order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, run, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			edges, err := db.GetCalls(cmd.Context(), run.ID, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if edges == nil {
					edges = []graph.CallEdge{}
				}
				return outputJSON(out, edges)
			}
			for _, e := range edges {
				fmt.Fprintf(out, "%s\t%s\n", e.Callee, e.Label())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func callersCmd(opts *dbOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "callers <callee>",
		Short: "List the functions that call a callee path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, run, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			callers, err := db.GetCallers(cmd.Context(), run.ID, args[0])
			if err != nil {
				return err
			}
			return printNames(cmd.OutOrStdout(), callers, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func reachCmd(opts *dbOptions) *cobra.Command {
	var depth int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reach <function>",
		Short: "List every callee reachable from a function",
		Long: `List every callee reachable from a function through recorded calls.

Callee text is matched against function keys, so transitive reach is only
meaningful for graphs exported with --identity name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 0 {
				return fmt.Errorf("invalid depth %d", depth)
			}
			db, run, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if run.Identity != graph.IdentityName {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: run %s uses %s identity; only direct callees will match\n", run.ID, run.Identity)
			}
			names, err := db.GetDownstream(cmd.Context(), run.ID, args[0], depth)
			if err != nil {
				return err
			}
			return printNames(cmd.OutOrStdout(), names, asJSON)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum call depth (0=unlimited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printNames(w io.Writer, names []string, asJSON bool) error {
	if asJSON {
		if names == nil {
			names = []string{}
		}
		return outputJSON(w, names)
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

func runsCmd() *cobra.Command {
	var path string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs stored in a database, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			db, err := storage.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			type runInfo struct {
				ID        string `json:"id"`
				Root      string `json:"root"`
				Identity  string `json:"identity"`
				CreatedAt string `json:"created_at"`
				Functions int64  `json:"functions"`
				Calls     int64  `json:"calls"`
			}
			infos := make([]runInfo, 0, len(runs))
			for _, r := range runs {
				stats, err := db.GetStats(cmd.Context(), r.ID)
				if err != nil {
					return err
				}
				infos = append(infos, runInfo{
					ID:        r.ID,
					Root:      r.Root,
					Identity:  string(r.Identity),
					CreatedAt: r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					Functions: stats.Functions,
					Calls:     stats.Calls,
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return outputJSON(out, infos)
			}
			for _, r := range infos {
				fmt.Fprintf(out, "%s  %s  %-9s  %d functions, %d calls  %s\n",
					r.ID, r.CreatedAt, r.Identity, r.Functions, r.Calls, r.Root)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "db", defaultDBPath, "SQLite database written by --sqlite")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func showCmd() *cobra.Command {
	opts := &dbOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render a stored run in any output format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			renderer, err := render.New(f)
			if err != nil {
				return err
			}

			db, run, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			g, err := db.LoadGraph(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := renderer.Render(&buf, g); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatDOT), "output format: dot, json, mermaid, tree")
	return cmd
}
