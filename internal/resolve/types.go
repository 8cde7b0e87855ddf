// Package resolve is the resolution orchestrator: the facade composing
// the cache, the layer executor and the fast-path search engine into
// the four public operations — find-definition, find-references,
// rename, and get-completions — plus lifecycle and maintenance hooks.
package resolve

import (
	"time"

	"github.com/google/uuid"

	"strata/internal/layers"
)

// Request is one resolution request. At least one of Identifier or
// (URI + Position) must be resolvable to a symbol; an empty URI is the
// valid workspace-wide marker, not an error.
type Request struct {
	Identifier         string          `json:"identifier,omitempty"`
	URI                string          `json:"uri,omitempty"`
	Position           layers.Position `json:"position,omitempty"`
	MaxResults         int             `json:"maxResults,omitempty"`
	IncludeDeclaration bool            `json:"includeDeclaration,omitempty"`

	// Rename only. DryRun nil means true: previews are the default and
	// applying is the explicit opt-in.
	NewName string `json:"newName,omitempty"`
	DryRun  *bool  `json:"dryRun,omitempty"`
}

// IsDryRun reports the effective dry-run setting.
func (r Request) IsDryRun() bool {
	return r.DryRun == nil || *r.DryRun
}

// LayerPerformance is the per-layer timing breakdown in milliseconds.
// Zero means "not invoked", not "instant".
type LayerPerformance struct {
	Layer1 int64 `json:"layer1"`
	Layer2 int64 `json:"layer2"`
	Layer3 int64 `json:"layer3"`
	Layer4 int64 `json:"layer4"`
	Layer5 int64 `json:"layer5"`
	Total  int64 `json:"total"`
}

func perfFrom(elapsed map[layers.LayerID]int64, total time.Duration) LayerPerformance {
	return LayerPerformance{
		Layer1: elapsed[layers.Layer1],
		Layer2: elapsed[layers.Layer2],
		Layer3: elapsed[layers.Layer3],
		Layer4: elapsed[layers.Layer4],
		Layer5: elapsed[layers.Layer5],
		Total:  total.Milliseconds(),
	}
}

// Envelope carries the response fields shared by every operation.
type Envelope struct {
	Performance LayerPerformance `json:"performance"`
	RequestID   string           `json:"requestId"`
	CacheHit    bool             `json:"cacheHit"`
	Timestamp   string           `json:"timestamp"`
}

// DefinitionsResponse answers FindDefinition.
type DefinitionsResponse struct {
	Data []layers.Location `json:"data"`
	Envelope
}

// ReferencesResponse answers FindReferences.
type ReferencesResponse struct {
	Data []layers.Location `json:"data"`
	Envelope
}

// RenameResponse answers Rename.
type RenameResponse struct {
	Data layers.WorkspaceEdit `json:"data"`
	Envelope
}

// CompletionsResponse answers GetCompletions.
type CompletionsResponse struct {
	Data []layers.CompletionItem `json:"data"`
	Envelope
}

// requestMetadata traces one request through layer calls. Never
// persisted.
type requestMetadata struct {
	id        string
	startTime time.Time
	source    string
}

func newMetadata(source string) *requestMetadata {
	return &requestMetadata{
		id:        uuid.NewString(),
		startTime: time.Now(),
		source:    source,
	}
}

func (m *requestMetadata) envelope(perf LayerPerformance, cacheHit bool) Envelope {
	return Envelope{
		Performance: perf,
		RequestID:   m.id,
		CacheHit:    cacheHit,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func (m *requestMetadata) meta(op layers.Operation) layers.Meta {
	return layers.Meta{RequestID: m.id, Operation: op}
}

func confidences(items []layers.Location) []float64 {
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = item.Confidence
	}
	return out
}
