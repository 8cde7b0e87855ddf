package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"strata/internal/layers"
	"strata/internal/resolve"
)

var renameApplyFlag bool

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a symbol across the workspace",
	Long: `Computes the workspace edit renaming every occurrence of the old
identifier, including case-style variants when propagation is enabled.
The default is a preview; --apply writes the edits to disk and teaches
the pattern layer the old->new transformation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, o *resolve.Orchestrator) error {
			req := buildRequest(args[0])
			req.NewName = args[1]
			dryRun := !renameApplyFlag
			req.DryRun = &dryRun

			resp, err := o.Rename(ctx, req)
			if err != nil {
				return err
			}

			if !dryRun {
				if err := applyWorkspaceEdit(resp.Data); err != nil {
					return err
				}
				for uri := range resp.Data {
					o.InvalidateCacheForFile(uri)
				}
			}

			if jsonFlag {
				return printJSON(resp)
			}
			printWorkspaceEdit(resp.Data, dryRun, resp.Envelope)
			return nil
		})
	},
}

// applyWorkspaceEdit writes the edit to disk, per file, applying each
// file's edits in descending start order so earlier edits never shift
// later ranges.
func applyWorkspaceEdit(edit layers.WorkspaceEdit) error {
	for uri, edits := range edit {
		path := displayPath(uri)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("applying rename to %s: %w", path, err)
		}
		lines := strings.Split(string(data), "\n")

		ordered := make([]layers.TextEdit, len(edits))
		copy(ordered, edits)
		sort.Slice(ordered, func(i, j int) bool {
			a, b := ordered[i].Range.Start, ordered[j].Range.Start
			if a.Line != b.Line {
				return a.Line > b.Line
			}
			return a.Character > b.Character
		})

		for _, e := range ordered {
			line := e.Range.Start.Line
			if line < 0 || line >= len(lines) {
				continue
			}
			text := lines[line]
			start, end := e.Range.Start.Character, e.Range.End.Character
			if start < 0 || start > len(text) || end < start || end > len(text) {
				continue
			}
			lines[line] = text[:start] + e.NewText + text[end:]
		}

		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
			return fmt.Errorf("applying rename to %s: %w", path, err)
		}
	}
	return nil
}

func init() {
	renameCmd.Flags().BoolVar(&renameApplyFlag, "apply", false, "apply the rename instead of previewing")
	rootCmd.AddCommand(renameCmd)
}
