package patterns

import (
	"context"

	"strata/internal/layers"
	"strata/internal/layers/textsearch"
	"strata/internal/paths"
	"strata/internal/search"
)

const (
	confBase      = 0.3
	confPerVote   = 0.1
	confCeiling   = 0.65
	maxCandidates = 8
)

// Backend suggests symbols by applying learned rewrites to the
// requested identifier. Suggestions without any anchor from earlier
// layers are not attempted; the orchestrator enforces that gate.
type Backend struct {
	store         *Store
	engine        *search.Engine
	workspaceRoot string
}

// New creates the pattern backend.
func New(store *Store, engine *search.Engine, workspaceRoot string) *Backend {
	return &Backend{store: store, engine: engine, workspaceRoot: workspaceRoot}
}

// ID returns layer4.
func (b *Backend) ID() layers.LayerID {
	return layers.Layer4
}

// Available reports whether the store is open.
func (b *Backend) Available() bool {
	return b.store != nil && b.engine != nil
}

// Learn forwards a rename observation to the store.
func (b *Backend) Learn(ctx context.Context, rc layers.RenameContext) error {
	return b.store.Learn(ctx, rc)
}

// Resolve applies stored rewrites to the identifier and searches the
// workspace for the rewritten candidates.
func (b *Backend) Resolve(ctx context.Context, q layers.Query) (*layers.Outcome, error) {
	patterns, err := b.store.All(ctx)
	if err != nil {
		return nil, err
	}

	candidates := rewriteCandidates(q.Identifier, patterns, maxCandidates)
	if len(candidates) == 0 {
		return &layers.Outcome{}, nil
	}

	if q.Operation == layers.OpGetCompletions {
		return &layers.Outcome{Completions: completions(candidates)}, nil
	}

	dir := paths.ScopeDir(q.URI, b.workspaceRoot)
	var found []layers.Location
	for _, c := range candidates {
		matches, err := b.engine.Search(ctx, search.Query{
			Pattern:    search.WordBoundaryPattern(c.name),
			Dir:        dir,
			MaxMatches: q.Limit,
		})
		if err != nil {
			continue
		}
		for _, m := range matches {
			found = append(found, b.location(m, c))
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

// candidate is one rewritten identifier with the support that produced
// it.
type candidate struct {
	name    string
	support int
}

// confidence grows with support but never reaches the fuzzy tier.
func (c candidate) confidence() float64 {
	conf := confBase + confPerVote*float64(c.support)
	if conf > confCeiling {
		return confCeiling
	}
	return conf
}

// rewriteCandidates applies each stored rewrite to the identifier,
// preserving its case style.
func rewriteCandidates(identifier string, patterns []Pattern, max int) []candidate {
	tokens := layers.SplitTokens(identifier)
	if len(tokens) == 0 {
		return nil
	}
	style := layers.DetectStyle(identifier)

	seen := map[string]bool{identifier: true}
	var out []candidate
	add := func(name string, support int) bool {
		if name == "" || seen[name] {
			return false
		}
		seen[name] = true
		out = append(out, candidate{name: name, support: support})
		return len(out) >= max
	}

	for _, p := range patterns {
		switch p.Kind {
		case RewritePrefix:
			if tokens[0] == p.FromToken {
				swapped := append([]string{p.ToToken}, tokens[1:]...)
				if add(layers.RenderStyle(swapped, style), p.Support) {
					return out
				}
			}
		case RewriteSuffix:
			last := len(tokens) - 1
			if tokens[last] == p.FromToken {
				swapped := append(append([]string{}, tokens[:last]...), p.ToToken)
				if add(layers.RenderStyle(swapped, style), p.Support) {
					return out
				}
			}
		case RewriteWhole:
			if identifier == p.FromToken {
				if add(p.ToToken, p.Support) {
					return out
				}
			}
		}
	}
	return out
}

func (b *Backend) location(m search.Match, c candidate) layers.Location {
	kind, _ := textsearch.Classify(m.Text, m.Column, c.name)
	line := m.Line - 1
	return layers.Location{
		URI: paths.PathToURI(m.Path),
		Range: layers.Range{
			Start: layers.Position{Line: line, Character: m.Column},
			End:   layers.Position{Line: line, Character: m.Column + len(c.name)},
		},
		Kind:       kind,
		Name:       c.name,
		Source:     layers.SourcePattern,
		Confidence: c.confidence(),
		Layer:      layers.Layer4,
	}
}

func completions(candidates []candidate) []layers.CompletionItem {
	items := make([]layers.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, layers.CompletionItem{
			Label:      c.name,
			Kind:       layers.KindFunction,
			Detail:     "learned pattern",
			SortKey:    c.name,
			Confidence: c.confidence(),
			Layer:      layers.Layer4,
		})
	}
	return items
}
