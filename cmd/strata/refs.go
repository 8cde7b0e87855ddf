package main

import (
	"context"

	"github.com/spf13/cobra"

	"strata/internal/resolve"
)

var (
	refsFastFlag        bool
	refsIncludeDeclFlag bool
)

var refsCmd = &cobra.Command{
	Use:   "refs <identifier>",
	Short: "Find a symbol's references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			req := buildRequest(args[0])
			req.IncludeDeclaration = refsIncludeDeclFlag

			var resp *resolve.ReferencesResponse
			var err error
			if refsFastFlag {
				resp, err = o.FindReferencesFast(ctx, req)
			} else {
				resp, err = o.FindReferences(ctx, req)
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
	refsCmd.Flags().BoolVar(&refsFastFlag, "fast", false, "single-pass text search, no cascade")
	refsCmd.Flags().BoolVar(&refsIncludeDeclFlag, "include-decl", false, "include the declaration site")
	rootCmd.AddCommand(refsCmd)
}
