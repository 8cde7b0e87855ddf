// Package textsearch is layer1: whole-identifier text search through
// the fast-path search engine, with kind inference from surrounding
// text. Cheapest layer, runs first in every cascade.
package textsearch

import (
	"context"
	"strings"

	"strata/internal/layers"
	"strata/internal/paths"
	"strata/internal/search"
)

const (
	confDeclaration = 0.9
	confAssignment  = 0.6
	confReference   = 0.85
	confDeclAsRef   = 0.8
)

// Backend resolves symbols by scanning workspace text.
type Backend struct {
	engine        *search.Engine
	workspaceRoot string
}

// New creates the text search backend on top of the shared engine.
func New(engine *search.Engine, workspaceRoot string) *Backend {
	return &Backend{engine: engine, workspaceRoot: workspaceRoot}
}

// ID returns layer1.
func (b *Backend) ID() layers.LayerID {
	return layers.Layer1
}

// Available reports whether the engine accepts searches.
func (b *Backend) Available() bool {
	return b.engine != nil
}

// Resolve answers definition, reference and rename queries from raw
// text matches. Completions are not this layer's business.
func (b *Backend) Resolve(ctx context.Context, q layers.Query) (*layers.Outcome, error) {
	if q.Identifier == "" {
		return &layers.Outcome{}, nil
	}

	matches, err := b.engine.Search(ctx, search.Query{
		Pattern:    search.WordBoundaryPattern(q.Identifier),
		Dir:        paths.ScopeDir(q.URI, b.workspaceRoot),
		MaxMatches: q.Limit,
	})
	if err != nil {
		return nil, err
	}

	switch q.Operation {
	case layers.OpFindDefinition:
		return &layers.Outcome{Definitions: b.definitions(matches, q.Identifier)}, nil
	case layers.OpFindReferences, layers.OpRename:
		includeDecl := q.IncludeDeclaration || q.Operation == layers.OpRename
		return &layers.Outcome{References: b.references(matches, q.Identifier, includeDecl)}, nil
	default:
		return &layers.Outcome{}, nil
	}
}

// definitions keeps only declaration-looking matches. A declaration
// keyword directly introducing the identifier is an exact match; an
// assignment form is only a fuzzy one.
func (b *Backend) definitions(matches []search.Match, identifier string) []layers.Location {
	var out []layers.Location
	for _, m := range matches {
		kind, decl := Classify(m.Text, m.Column, identifier)
		if !decl {
			continue
		}
		loc := b.location(m, identifier, kind)
		if isKeywordDeclaration(m.Text, m.Column) {
			loc.Source = layers.SourceExact
			loc.Confidence = confDeclaration
		} else {
			loc.Source = layers.SourceFuzzy
			loc.Confidence = confAssignment
		}
		out = append(out, loc)
	}
	return out
}

// references converts every match; declaration lines are dropped when
// the caller excluded them, and carry slightly lower confidence when
// kept since a declaration is not a use site.
func (b *Backend) references(matches []search.Match, identifier string, includeDeclaration bool) []layers.Location {
	var out []layers.Location
	for _, m := range matches {
		kind, decl := Classify(m.Text, m.Column, identifier)
		if decl && !includeDeclaration {
			continue
		}
		loc := b.location(m, identifier, kind)
		loc.Source = layers.SourceExact
		if decl {
			loc.Confidence = confDeclAsRef
		} else {
			loc.Confidence = confReference
		}
		out = append(out, loc)
	}
	return out
}

func (b *Backend) location(m search.Match, identifier string, kind layers.Kind) layers.Location {
	line := m.Line - 1 // rg reports 1-based lines
	return layers.Location{
		URI: paths.PathToURI(m.Path),
		Range: layers.Range{
			Start: layers.Position{Line: line, Character: m.Column},
			End:   layers.Position{Line: line, Character: m.Column + len(identifier)},
		},
		Kind:  kind,
		Name:  identifier,
		Layer: layers.Layer1,
	}
}

// isKeywordDeclaration reports whether a declaration keyword (not a
// bare assignment) introduces the identifier at column.
func isKeywordDeclaration(line string, column int) bool {
	before := line
	if column >= 0 && column <= len(line) {
		before = line[:column]
	}
	for _, f := range strings.Fields(before) {
		if _, ok := declarationKeywords[f]; ok {
			return true
		}
	}
	return false
}
