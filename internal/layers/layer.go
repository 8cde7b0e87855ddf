// Package layers defines the resolution layer contract and the shared
// result model, and executes layers with per-layer timeout and error
// isolation. Layer backends live in subpackages; the executor is the
// only code that invokes them.
package layers

import "context"

// LayerID identifies one resolution layer. The numeric order is the
// fixed invocation order: cheaper, less precise layers run first.
type LayerID string

const (
	// Layer1 is fast text search.
	Layer1 LayerID = "layer1"
	// Layer2 is AST-based structural analysis.
	Layer2 LayerID = "layer2"
	// Layer3 is conceptual/ontology lookup.
	Layer3 LayerID = "layer3"
	// Layer4 is learned-pattern suggestion.
	Layer4 LayerID = "layer4"
	// Layer5 is cross-concept propagation.
	Layer5 LayerID = "layer5"
)

// AllLayers is the fixed invocation order of the resolution layers.
var AllLayers = []LayerID{Layer1, Layer2, Layer3, Layer4, Layer5}

// Source tags how a result was derived; it determines rank tie-breaks
// for definitions.
type Source string

const (
	SourceExact      Source = "exact"
	SourceFuzzy      Source = "fuzzy"
	SourceConceptual Source = "conceptual"
	SourcePattern    Source = "pattern"
)

// Kind classifies the symbol a result points at.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindVariable  Kind = "variable"
	KindProperty  Kind = "property"
	KindMethod    Kind = "method"
	KindModule    Kind = "module"
)

// Operation names the resolution operation a layer is asked to serve.
type Operation string

const (
	OpFindDefinition Operation = "findDefinition"
	OpFindReferences Operation = "findReferences"
	OpRename         Operation = "rename"
	OpGetCompletions Operation = "getCompletions"
)

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [start, end) span.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is one definition or reference result. Confidence reflects
// the producing layer's certainty and is never recomputed downstream.
type Location struct {
	URI        string                 `json:"uri"`
	Range      Range                  `json:"range"`
	Kind       Kind                   `json:"kind"`
	Name       string                 `json:"name"`
	Source     Source                 `json:"source"`
	Confidence float64                `json:"confidence"`
	Layer      LayerID                `json:"layer"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IdentityKey is the structural identity used for deduplication: two
// results pointing at the same start position in the same file are the
// same result no matter which layer produced them.
func (l Location) IdentityKey() string {
	return identityKey(l.URI, l.Range.Start.Line, l.Range.Start.Character)
}

// CompletionItem is one completion suggestion.
type CompletionItem struct {
	Label      string  `json:"label"`
	Kind       Kind    `json:"kind"`
	Detail     string  `json:"detail,omitempty"`
	SortKey    string  `json:"sortKey"`
	Confidence float64 `json:"confidence"`
	Layer      LayerID `json:"layer"`
}

// TextEdit replaces a range with new text.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit maps a URI to its ordered edit list. Appliers must sort
// a file's edits by descending start offset before applying; the lists
// themselves are never reordered here.
type WorkspaceEdit map[string][]TextEdit

// Merge concatenates src's per-file edit lists onto w without
// reordering either side.
func (w WorkspaceEdit) Merge(src WorkspaceEdit) {
	for uri, edits := range src {
		w[uri] = append(w[uri], edits...)
	}
}

// Size returns the total edit count across all files.
func (w WorkspaceEdit) Size() int {
	n := 0
	for _, edits := range w {
		n += len(edits)
	}
	return n
}

// Query is the single narrow request shape every layer backend
// understands. Anchors carry results accumulated by earlier layers so
// that suggestion layers have something to anchor on.
type Query struct {
	Operation          Operation
	Identifier         string
	URI                string
	Position           Position
	Limit              int
	IncludeDeclaration bool
	NewName            string
	Anchors            []Location
}

// Outcome is a layer's partial answer; only the fields the operation
// asked for are populated.
type Outcome struct {
	Definitions []Location
	References  []Location
	Completions []CompletionItem
	Edits       WorkspaceEdit
}

// Locations returns whichever location list the outcome carries for a
// definition or reference operation.
func (o *Outcome) Locations() []Location {
	if o == nil {
		return nil
	}
	if len(o.Definitions) > 0 {
		return o.Definitions
	}
	return o.References
}

// HasExact reports whether any definition in the outcome is an exact
// match. Used by the definition cascade's early exit.
func (o *Outcome) HasExact() bool {
	if o == nil {
		return false
	}
	for _, d := range o.Definitions {
		if d.Source == SourceExact {
			return true
		}
	}
	return false
}

// RenameContext is what the learning backend is taught after a rename.
type RenameContext struct {
	OldName string
	NewName string
	URI     string
}

// Backend is the closed contract every resolution layer satisfies.
// Enablement is registry state, not backend state; Available reports
// whether the backend's underlying machinery (binary, index, store) is
// usable right now.
type Backend interface {
	ID() LayerID
	Available() bool
	Resolve(ctx context.Context, q Query) (*Outcome, error)
}
