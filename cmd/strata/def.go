package main

import (
	"context"

	"github.com/spf13/cobra"

	"strata/internal/resolve"
)

var defFastFlag bool

var defCmd = &cobra.Command{
	Use:   "def <identifier>",
	Short: "Find a symbol's definitions",
	Long: `Resolves the identifier's definitions through the layer cascade. With
--fast a single bounded text search answers instead; quicker, but it
skips structural, conceptual and learned resolution.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			req := buildRequest(args[0])

			var resp *resolve.DefinitionsResponse
			var err error
			if defFastFlag {
				resp, err = o.FindDefinitionFast(ctx, req)
			} else {
				resp, err = o.FindDefinition(ctx, req)
			}
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(resp)
			}
			printLocations(resp.Data, resp.Envelope)
			return nil
		})
	},
}

func init() {
	defCmd.Flags().BoolVar(&defFastFlag, "fast", false, "single-pass text search, no cascade")
	rootCmd.AddCommand(defCmd)
}
