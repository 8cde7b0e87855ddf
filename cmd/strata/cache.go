package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/resolve"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the resolution cache",
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-resolve the workspace's most declared identifiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			warmed := o.WarmNow(ctx, "")
			if jsonFlag {
				return printJSON(map[string]interface{}{"warmed": warmed})
			}
			fmt.Printf("warmed %d identifier(s)\n", warmed)
			return nil
		})
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <path>",
	Short: "Drop cache entries derived from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			removed := o.InvalidateCacheForFile(args[0])
			if jsonFlag {
				return printJSON(map[string]interface{}{"removed": removed})
			}
			fmt.Printf("removed %d cache entr%s\n", removed, plural(removed, "y", "ies"))
			return nil
		})
	},
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	cacheCmd.AddCommand(warmCmd)
	cacheCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
