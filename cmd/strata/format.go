package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"strata/internal/layers"
	"strata/internal/resolve"
)

// displayPath strips the file:// scheme for human output; the URIs in
// responses are already canonical absolute paths underneath.
func displayPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// printJSON emits v as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printLocations renders a location list as a table: one row per hit,
// positions shown 1-based for humans.
func printLocations(locs []layers.Location, env resolve.Envelope) {
	if len(locs) == 0 {
		fmt.Println("no results")
		printFooter(env)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tKIND\tSOURCE\tCONF\tLAYER")
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\t%s\t%s\t%.2f\t%s\n",
			displayPath(loc.URI),
			loc.Range.Start.Line+1,
			loc.Range.Start.Character+1,
			loc.Kind,
			loc.Source,
			loc.Confidence,
			loc.Layer,
		)
	}
	_ = w.Flush()
	printFooter(env)
}

// printWorkspaceEdit renders a rename preview grouped by file.
func printWorkspaceEdit(edit layers.WorkspaceEdit, dryRun bool, env resolve.Envelope) {
	total := edit.Size()
	if total == 0 {
		fmt.Println("no occurrences found")
		printFooter(env)
		return
	}

	uris := make([]string, 0, len(edit))
	for uri := range edit {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		fmt.Printf("%s\n", displayPath(uri))
		for _, e := range edit[uri] {
			fmt.Printf("  %d:%d  %s\n", e.Range.Start.Line+1, e.Range.Start.Character+1, e.NewText)
		}
	}

	verb := "would change"
	if !dryRun {
		verb = "changed"
	}
	fmt.Printf("%s %d occurrence(s) across %d file(s)\n", verb, total, len(uris))
	printFooter(env)
}

// printCompletions renders completion items as a table.
func printCompletions(items []layers.CompletionItem, env resolve.Envelope) {
	if len(items) == 0 {
		fmt.Println("no completions")
		printFooter(env)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tKIND\tLAYER\tCONF\tDETAIL")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			item.Label, item.Kind, item.Layer, item.Confidence, item.Detail)
	}
	_ = w.Flush()
	printFooter(env)
}

func printFooter(env resolve.Envelope) {
	cached := ""
	if env.CacheHit {
		cached = " (cached)"
	}
	fmt.Printf("took %dms%s\n", env.Performance.Total, cached)
}
