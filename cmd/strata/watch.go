package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"strata/internal/resolve"
	"strata/internal/watcher"
)

var watchDebounceFlag int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace and keep the cache fresh",
	Long: `Watches the workspace tree and invalidates cache entries for files
whose changes have settled. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			w, err := watcher.New(watcher.Config{
				Root:       loadedCfg.WorkspaceRoot,
				DebounceMs: watchDebounceFlag,
				Exclude:    loadedCfg.Search.Exclude,
			}, func(path string) {
				o.InvalidateCacheForFile(path)
			}, appLogger)
			if err != nil {
				return err
			}
			defer w.Stop()

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("watching %s (ctrl-c to stop)\n", loadedCfg.WorkspaceRoot)
			return w.Start(runCtx)
		})
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounceFlag, "debounce", 200, "debounce window in milliseconds")
	rootCmd.AddCommand(watchCmd)
}
