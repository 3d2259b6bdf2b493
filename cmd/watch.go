package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/cgraph/internal/watcher"
)

// runWatch does an initial run, then re-runs whenever sources change. A failed
// run is reported and watching continues.
func runWatch(cmd *cobra.Command, p *pipeline) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	if err := p.runOnce(ctx, cmd); err != nil {
		fmt.Fprintf(stderr, "[%s] initial analysis failed: %v\n", time.Now().Format("15:04:05"), err)
	}

	w, err := watcher.New(
		p.root,
		func(ctx context.Context, changed []string) error {
			fmt.Fprintf(stderr, "[%s] %d file(s) changed, re-running...\n", time.Now().Format("15:04:05"), len(changed))
			return p.runOnce(ctx, cmd)
		},
		watcher.WithDebounceDelay(p.cfg.Debounce()),
		watcher.WithExtensions(p.parser.Extensions()...),
		watcher.WithIgnorePatterns(p.cfg.Ignore...),
		watcher.WithLogger(p.logger),
		watcher.WithOnError(func(err error) {
			fmt.Fprintf(stderr, "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
		}),
	)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	fmt.Fprintf(stderr, "watching %s (debounce %v), press Ctrl+C to stop\n", p.root, p.cfg.Debounce())
	return w.Run(ctx)
}
