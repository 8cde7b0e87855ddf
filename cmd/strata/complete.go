package main

import (
	"context"

	"github.com/spf13/cobra"

	"strata/internal/resolve"
)

var completeCmd = &cobra.Command{
	Use:   "complete <prefix>",
	Short: "Suggest identifier completions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			resp, err := o.GetCompletions(ctx, buildRequest(args[0]))
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(resp)
			}
			printCompletions(resp.Data, resp.Envelope)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
}
