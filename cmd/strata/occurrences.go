package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/paths"
	"strata/internal/resolve"
	"strata/internal/search"
)

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences <identifier>",
	Short: "Print raw whole-word occurrences as they are found",
	Long: `Streams every whole-word occurrence of the identifier straight from
the search engine, without layer resolution or ranking. Useful for
eyeballing what the text layer sees.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			q := search.Query{
				Pattern:    search.WordBoundaryPattern(args[0]),
				Dir:        paths.ScopeDir(fileFlag, loadedCfg.WorkspaceRoot),
				MaxMatches: limitFlag,
			}

			stream, err := o.Engine().SearchStream(ctx, q)
			if err != nil {
				// No rg on PATH: fall back to the buffered search.
				matches, searchErr := o.Engine().Search(ctx, q)
				if searchErr != nil {
					return searchErr
				}
				printMatches(matches)
				return nil
			}
			defer stream.Cancel()

			n := 0
			for m := range stream.Matches() {
				fmt.Printf("%s:%d:%d: %s\n", m.Path, m.Line, m.Column+1, m.Text)
				n++
			}
			if err := stream.Err(); err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("no occurrences")
			}
			return nil
		})
	},
}

func printMatches(matches []search.Match) {
	if len(matches) == 0 {
		fmt.Println("no occurrences")
		return
	}
	for _, m := range matches {
		fmt.Printf("%s:%d:%d: %s\n", m.Path, m.Line, m.Column+1, m.Text)
	}
}

func init() {
	rootCmd.AddCommand(occurrencesCmd)
}
