package concepts

import (
	"context"

	"strata/internal/layers"
	"strata/internal/layers/textsearch"
	"strata/internal/paths"
	"strata/internal/search"
)

const (
	confDeclaration = 0.6
	confOccurrence  = 0.5
	confCompletion  = 0.6
)

// Backend resolves conceptually related symbols by searching for
// synonym-ring variants of the requested identifier.
type Backend struct {
	ontology      *Ontology
	engine        *search.Engine
	workspaceRoot string
	maxVariants   int
}

// New creates the concepts backend.
func New(ontology *Ontology, engine *search.Engine, workspaceRoot string, maxVariants int) *Backend {
	if maxVariants <= 0 {
		maxVariants = 8
	}
	return &Backend{
		ontology:      ontology,
		engine:        engine,
		workspaceRoot: workspaceRoot,
		maxVariants:   maxVariants,
	}
}

// ID returns layer3.
func (b *Backend) ID() layers.LayerID {
	return layers.Layer3
}

// Available reports whether the ontology and engine are usable.
func (b *Backend) Available() bool {
	return b.ontology != nil && b.engine != nil
}

// Resolve searches for each conceptual variant of the identifier. For
// completions the variants themselves are the suggestions, no search
// needed.
func (b *Backend) Resolve(ctx context.Context, q layers.Query) (*layers.Outcome, error) {
	variants := b.ontology.Variants(q.Identifier, b.maxVariants)
	if len(variants) == 0 {
		return &layers.Outcome{}, nil
	}

	if q.Operation == layers.OpGetCompletions {
		return &layers.Outcome{Completions: b.completions(variants)}, nil
	}

	dir := paths.ScopeDir(q.URI, b.workspaceRoot)
	var found []layers.Location
	for _, variant := range variants {
		matches, err := b.engine.Search(ctx, search.Query{
			Pattern:    search.WordBoundaryPattern(variant),
			Dir:        dir,
			MaxMatches: q.Limit,
		})
		if err != nil {
			// One variant failing does not spoil the others.
			continue
		}
		for _, m := range matches {
			found = append(found, b.location(m, variant))
		}
		if q.Limit > 0 && len(found) >= q.Limit {
			break
		}
	}

	out := &layers.Outcome{}
	if q.Operation == layers.OpFindDefinition {
		out.Definitions = found
	} else {
		out.References = found
	}
	return out, nil
}

func (b *Backend) location(m search.Match, variant string) layers.Location {
	kind, decl := textsearch.Classify(m.Text, m.Column, variant)
	conf := confOccurrence
	if decl {
		conf = confDeclaration
	}
	line := m.Line - 1
	return layers.Location{
		URI: paths.PathToURI(m.Path),
		Range: layers.Range{
			Start: layers.Position{Line: line, Character: m.Column},
			End:   layers.Position{Line: line, Character: m.Column + len(variant)},
		},
		Kind:       kind,
		Name:       variant,
		Source:     layers.SourceConceptual,
		Confidence: conf,
		Layer:      layers.Layer3,
	}
}

func (b *Backend) completions(variants []string) []layers.CompletionItem {
	items := make([]layers.CompletionItem, 0, len(variants))
	for _, v := range variants {
		items = append(items, layers.CompletionItem{
			Label:      v,
			Kind:       layers.KindFunction,
			Detail:     "conceptual variant",
			SortKey:    v,
			Confidence: confCompletion,
			Layer:      layers.Layer3,
		})
	}
	return items
}
