package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"strata/internal/layers"
	"strata/internal/resolve"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show layer availability and cache/search counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			stats := o.Stats()
			if jsonFlag {
				return printJSON(stats)
			}

			fmt.Printf("workspace: %s\n", stats.Workspace)

			ids := make([]string, 0, len(stats.Layers))
			for id := range stats.Layers {
				ids = append(ids, string(id))
			}
			sort.Strings(ids)
			fmt.Println("layers:")
			for _, id := range ids {
				state := "unavailable"
				if stats.Layers[layers.LayerID(id)] {
					state = "available"
				}
				fmt.Printf("  %s: %s\n", id, state)
			}

			fmt.Printf("cache: %d entries, %d hits, %d misses, %d evictions\n",
				stats.Cache.Entries, stats.Cache.Hits, stats.Cache.Misses, stats.Cache.Evictions)
			fmt.Printf("search: %d workers, %d cache hits, %d cache misses, %d fallback scans\n",
				stats.Search.Workers, stats.Search.CacheHits, stats.Search.CacheMisses, stats.Search.Fallbacks)
			if stats.Search.RipgrepPath != "" {
				fmt.Printf("ripgrep: %s\n", stats.Search.RipgrepPath)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
