// Package propagate is layer5: extending a rename or lookup to
// semantically related spellings of the same name — the snake_case
// config key, the SCREAMING_SNAKE constant, the kebab-case CLI flag.
package propagate

import (
	"context"

	"strata/internal/layers"
	"strata/internal/paths"
	"strata/internal/search"
)

const confRelated = 0.4

// Backend finds case-style variants of the requested identifier. The
// orchestrator gates it on having at least one anchor from earlier
// layers, so variants never appear out of thin air.
type Backend struct {
	engine        *search.Engine
	workspaceRoot string
}

// New creates the propagation backend.
func New(engine *search.Engine, workspaceRoot string) *Backend {
	return &Backend{engine: engine, workspaceRoot: workspaceRoot}
}

// ID returns layer5.
func (b *Backend) ID() layers.LayerID {
	return layers.Layer5
}

// Available reports whether the engine accepts searches.
func (b *Backend) Available() bool {
	return b.engine != nil
}

// Resolve reports occurrences of case variants as related results. For
// rename operations use Propagate, which returns edits instead.
func (b *Backend) Resolve(ctx context.Context, q layers.Query) (*layers.Outcome, error) {
	if q.Operation == layers.OpRename {
		edits, err := b.Propagate(ctx, q.Identifier, q.NewName, q.URI)
		if err != nil {
			return nil, err
		}
		return &layers.Outcome{Edits: edits}, nil
	}

	occurrences, err := b.variantOccurrences(ctx, q.Identifier, q.URI, q.Limit)
	if err != nil {
		return nil, err
	}

	var found []layers.Location
	for _, occ := range occurrences {
		found = append(found, layers.Location{
			URI:        occ.uri,
			Range:      occ.rng,
			Kind:       layers.KindVariable,
			Name:       occ.variant,
			Source:     layers.SourceConceptual,
			Confidence: confRelated,
			Layer:      layers.Layer5,
		})
	}

	out := &layers.Outcome{}
	if q.Operation == layers.OpFindDefinition {
		out.Definitions = found
	} else {
		out.References = found
	}
	return out, nil
}

// Propagate builds edits renaming every case variant of oldName to the
// same-styled rendering of newName.
func (b *Backend) Propagate(ctx context.Context, oldName, newName, uri string) (layers.WorkspaceEdit, error) {
	newTokens := layers.SplitTokens(newName)
	if len(newTokens) == 0 {
		return layers.WorkspaceEdit{}, nil
	}

	occurrences, err := b.variantOccurrences(ctx, oldName, uri, 0)
	if err != nil {
		return nil, err
	}

	edits := layers.WorkspaceEdit{}
	for _, occ := range occurrences {
		replacement := layers.RenderStyle(newTokens, layers.DetectStyle(occ.variant))
		edits[occ.uri] = append(edits[occ.uri], layers.TextEdit{
			Range:   occ.rng,
			NewText: replacement,
		})
	}
	return edits, nil
}

type occurrence struct {
	uri     string
	rng     layers.Range
	variant string
}

func (b *Backend) variantOccurrences(ctx context.Context, identifier, uri string, limit int) ([]occurrence, error) {
	variants := layers.CaseVariants(identifier)
	if len(variants) == 0 {
		return nil, nil
	}

	dir := paths.ScopeDir(uri, b.workspaceRoot)
	var out []occurrence
	for _, variant := range variants {
		matches, err := b.engine.Search(ctx, search.Query{
			Pattern:    search.WordBoundaryPattern(variant),
			Dir:        dir,
			MaxMatches: limit,
		})
		if err != nil {
			continue
		}
		for _, m := range matches {
			line := m.Line - 1
			out = append(out, occurrence{
				uri: paths.PathToURI(m.Path),
				rng: layers.Range{
					Start: layers.Position{Line: line, Character: m.Column},
					End:   layers.Position{Line: line, Character: m.Column + len(variant)},
				},
				variant: variant,
			})
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
