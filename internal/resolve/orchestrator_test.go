package resolve

import (
	"context"
	"io"
	"testing"
	"time"

	"strata/internal/cache"
	"strata/internal/config"
	"strata/internal/errors"
	"strata/internal/layers"
	"strata/internal/logging"
)

// stubBackend returns a fixed outcome for every query.
type stubBackend struct {
	id    layers.LayerID
	out   *layers.Outcome
	err   error
	calls int
}

func (s *stubBackend) ID() layers.LayerID { return s.id }
func (s *stubBackend) Available() bool    { return true }

func (s *stubBackend) Resolve(ctx context.Context, q layers.Query) (*layers.Outcome, error) {
	s.calls++
	return s.out, s.err
}

func defOutcome(uri string, line int, source layers.Source, conf float64) *layers.Outcome {
	return &layers.Outcome{Definitions: []layers.Location{{
		URI:        uri,
		Range:      layers.Range{Start: layers.Position{Line: line}},
		Source:     source,
		Confidence: conf,
		Layer:      layers.Layer1,
	}}}
}

func refOutcome(uri string, line int, conf float64) *layers.Outcome {
	return &layers.Outcome{References: []layers.Location{{
		URI:        uri,
		Range:      layers.Range{Start: layers.Position{Line: line}},
		Source:     layers.SourceExact,
		Confidence: conf,
	}}}
}

// newTestOrchestrator wires stub backends directly, bypassing
// Initialize so no search pool or sqlite store is started.
func newTestOrchestrator(t *testing.T, backends ...*stubBackend) *Orchestrator {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = t.TempDir()
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel, Output: io.Discard})

	o := New(cfg, logger)
	o.store = cache.NewStore(cache.StoreConfig{MaxEntries: 256, JanitorInterval: time.Hour}, logger)
	t.Cleanup(o.store.Close)
	o.exec = layers.NewExecutor(logger)
	for _, b := range backends {
		o.exec.Register(b, true, time.Second)
	}
	o.initialized.Store(true)
	return o
}

func TestFindDefinitionExactEarlyExit(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, out: defOutcome("file:///a.go", 3, layers.SourceExact, 0.9)}
	b2 := &stubBackend{id: layers.Layer2, out: defOutcome("file:///b.go", 5, layers.SourceExact, 0.95)}
	b3 := &stubBackend{id: layers.Layer3, out: &layers.Outcome{}}
	o := newTestOrchestrator(t, b1, b2, b3)

	resp, err := o.FindDefinition(context.Background(), Request{Identifier: "getUser"})
	if err != nil {
		t.Fatalf("FindDefinition: %v", err)
	}
	if b1.calls != 1 {
		t.Errorf("layer1 called %d times", b1.calls)
	}
	if b2.calls != 0 || b3.calls != 0 {
		t.Errorf("layers past an exact hit were invoked: layer2=%d layer3=%d", b2.calls, b3.calls)
	}
	if len(resp.Data) != 1 || resp.Data[0].URI != "file:///a.go" {
		t.Errorf("Data = %v", resp.Data)
	}
	if resp.CacheHit {
		t.Error("first request reported a cache hit")
	}
	if resp.RequestID == "" {
		t.Error("missing request id")
	}
}

func TestFindDefinitionCascadesOnFuzzy(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, out: defOutcome("file:///a.go", 3, layers.SourceFuzzy, 0.6)}
	b2 := &stubBackend{id: layers.Layer2, out: defOutcome("file:///b.go", 5, layers.SourceExact, 0.95)}
	b3 := &stubBackend{id: layers.Layer3, out: &layers.Outcome{}}
	o := newTestOrchestrator(t, b1, b2, b3)

	resp, err := o.FindDefinition(context.Background(), Request{Identifier: "getUser"})
	if err != nil {
		t.Fatalf("FindDefinition: %v", err)
	}
	if b2.calls != 1 || b3.calls != 1 {
		t.Errorf("cascade stopped early: layer2=%d layer3=%d", b2.calls, b3.calls)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("Data = %v", resp.Data)
	}
	// Higher confidence first regardless of layer order.
	if resp.Data[0].URI != "file:///b.go" {
		t.Errorf("ranking lost: first result %v", resp.Data[0])
	}
}

func TestFindDefinitionSuggestionGate(t *testing.T) {
	// No anchor from layers 1-3: the suggestion layers must not run.
	b1 := &stubBackend{id: layers.Layer1, out: &layers.Outcome{}}
	b4 := &stubBackend{id: layers.Layer4, out: defOutcome("file:///p.go", 1, layers.SourcePattern, 0.4)}
	b5 := &stubBackend{id: layers.Layer5, out: defOutcome("file:///q.go", 1, layers.SourceConceptual, 0.4)}
	o := newTestOrchestrator(t, b1, b4, b5)

	resp, err := o.FindDefinition(context.Background(), Request{Identifier: "ghost"})
	if err != nil {
		t.Fatalf("FindDefinition: %v", err)
	}
	if b4.calls != 0 || b5.calls != 0 {
		t.Errorf("anchorless suggestion layers ran: layer4=%d layer5=%d", b4.calls, b5.calls)
	}
	if len(resp.Data) != 0 {
		t.Errorf("Data = %v, want empty", resp.Data)
	}
}

func TestFindDefinitionCacheHit(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, out: defOutcome("file:///a.go", 3, layers.SourceExact, 0.9)}
	o := newTestOrchestrator(t, b1)
	ctx := context.Background()
	req := Request{Identifier: "getUser"}

	first, err := o.FindDefinition(ctx, req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := o.FindDefinition(ctx, req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !second.CacheHit {
		t.Error("second identical request missed the cache")
	}
	if b1.calls != 1 {
		t.Errorf("backend re-invoked on a cache hit: %d calls", b1.calls)
	}
	if second.Performance != (LayerPerformance{}) {
		t.Errorf("cached response carries layer timings: %+v", second.Performance)
	}
	if second.RequestID == first.RequestID {
		t.Error("cached response reused the original request id")
	}
	if len(second.Data) != len(first.Data) {
		t.Errorf("cached data diverged: %v vs %v", second.Data, first.Data)
	}
}

func TestFindDefinitionLayerFailureIsolated(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, err: errors.New(errors.SearchFailed, "rg exploded", nil)}
	b2 := &stubBackend{id: layers.Layer2, out: defOutcome("file:///b.go", 5, layers.SourceExact, 0.95)}
	o := newTestOrchestrator(t, b1, b2)

	resp, err := o.FindDefinition(context.Background(), Request{Identifier: "getUser"})
	if err != nil {
		t.Fatalf("a single layer failure surfaced: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].URI != "file:///b.go" {
		t.Errorf("healthy layer's result lost: %v", resp.Data)
	}
}

func TestFindReferencesRunsSuggestionLayers(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, out: refOutcome("file:///a.go", 1, 0.85)}
	b2 := &stubBackend{id: layers.Layer2, out: &layers.Outcome{}}
	b3 := &stubBackend{id: layers.Layer3, out: refOutcome("file:///b.go", 2, 0.5)}
	b4 := &stubBackend{id: layers.Layer4, out: &layers.Outcome{}}
	b5 := &stubBackend{id: layers.Layer5, out: refOutcome("file:///c.go", 3, 0.4)}
	o := newTestOrchestrator(t, b1, b2, b3, b4, b5)

	resp, err := o.FindReferences(context.Background(), Request{Identifier: "getUser"})
	if err != nil {
		t.Fatalf("FindReferences: %v", err)
	}
	for i, b := range []*stubBackend{b1, b2, b3, b4, b5} {
		if b.calls != 1 {
			t.Errorf("layer%d called %d times, want 1", i+1, b.calls)
		}
	}
	if len(resp.Data) != 3 {
		t.Fatalf("Data = %v", resp.Data)
	}
	if resp.Data[0].Confidence != 0.85 {
		t.Errorf("references not ranked by confidence: %v", resp.Data)
	}
}

func TestRenameDryRunBuildsEdit(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, out: refOutcome("file:///a.go", 1, 0.85)}
	b2 := &stubBackend{id: layers.Layer2, out: refOutcome("file:///a.go", 9, 0.9)}
	o := newTestOrchestrator(t, b1, b2)

	resp, err := o.Rename(context.Background(), Request{Identifier: "getUser", NewName: "fetchUser"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	edits := resp.Data["file:///a.go"]
	if len(edits) != 2 {
		t.Fatalf("edits = %v", resp.Data)
	}
	for _, e := range edits {
		if e.NewText != "fetchUser" {
			t.Errorf("edit text = %q", e.NewText)
		}
	}
}

func TestRenameDryRunCached(t *testing.T) {
	b1 := &stubBackend{id: layers.Layer1, out: refOutcome("file:///a.go", 1, 0.85)}
	o := newTestOrchestrator(t, b1)
	ctx := context.Background()
	req := Request{Identifier: "getUser", NewName: "fetchUser"}

	if _, err := o.Rename(ctx, req); err != nil {
		t.Fatalf("first rename: %v", err)
	}
	second, err := o.Rename(ctx, req)
	if err != nil {
		t.Fatalf("second rename: %v", err)
	}
	if !second.CacheHit {
		t.Error("dry-run rename preview missed the cache")
	}

	// Applying must never answer from cache.
	dryRun := false
	req.DryRun = &dryRun
	applied, err := o.Rename(ctx, req)
	if err != nil {
		t.Fatalf("applied rename: %v", err)
	}
	if applied.CacheHit {
		t.Error("applying rename answered from cache")
	}
}

func TestRenameNeedsNewName(t *testing.T) {
	o := newTestOrchestrator(t, &stubBackend{id: layers.Layer1, out: &layers.Outcome{}})
	_, err := o.Rename(context.Background(), Request{Identifier: "getUser"})
	if !errors.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestGetCompletionsMergesSources(t *testing.T) {
	b3 := &stubBackend{id: layers.Layer3, out: &layers.Outcome{Completions: []layers.CompletionItem{
		{Label: "fetchUser", SortKey: "fetchUser", Confidence: 0.6, Layer: layers.Layer3},
		{Label: "shared", SortKey: "shared", Confidence: 0.5, Layer: layers.Layer3},
	}}}
	b4 := &stubBackend{id: layers.Layer4, out: &layers.Outcome{Completions: []layers.CompletionItem{
		{Label: "loadUser", SortKey: "loadUser", Confidence: 0.45, Layer: layers.Layer4},
		{Label: "shared", SortKey: "shared", Confidence: 0.3, Layer: layers.Layer4},
	}}}
	o := newTestOrchestrator(t, b3, b4)

	resp, err := o.GetCompletions(context.Background(), Request{Identifier: "getUser"})
	if err != nil {
		t.Fatalf("GetCompletions: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("Data = %v, want 3 after label dedupe", resp.Data)
	}
	if resp.Data[0].Label != "fetchUser" {
		t.Errorf("not ranked by confidence: %v", resp.Data[0])
	}
}

func TestGetCompletionsLeavesBackendResultsIntact(t *testing.T) {
	// A backend that keeps its outcome between calls: spare capacity and
	// a duplicate label make any in-place merge rewrite visible.
	patternItems := make([]layers.CompletionItem, 2, 8)
	patternItems[0] = layers.CompletionItem{Label: "fetchUser", SortKey: "fetchUser", Confidence: 0.5, Layer: layers.Layer4}
	patternItems[1] = layers.CompletionItem{Label: "fetchUser", SortKey: "fetchUser", Confidence: 0.4, Layer: layers.Layer4}
	b4 := &stubBackend{id: layers.Layer4, out: &layers.Outcome{Completions: patternItems}}
	b3 := &stubBackend{id: layers.Layer3, out: &layers.Outcome{Completions: []layers.CompletionItem{
		{Label: "loadUser", SortKey: "loadUser", Confidence: 0.6, Layer: layers.Layer3},
	}}}
	o := newTestOrchestrator(t, b3, b4)

	resp, err := o.GetCompletions(context.Background(), Request{Identifier: "getUser"})
	if err != nil {
		t.Fatalf("GetCompletions: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("Data = %v, want deduped fetchUser plus loadUser", resp.Data)
	}

	got := b4.out.Completions
	if len(got) != 2 || got[0].Label != "fetchUser" || got[1].Label != "fetchUser" {
		t.Fatalf("backend slice rewritten: %v", got)
	}
	if got[1].Confidence != 0.4 || got[1].Layer != layers.Layer4 {
		t.Errorf("backend item mutated: %+v", got[1])
	}
}

func TestGetCompletionsLimit(t *testing.T) {
	items := make([]layers.CompletionItem, 30)
	for i := range items {
		items[i] = layers.CompletionItem{
			Label:      "cand" + string(rune('a'+i)),
			SortKey:    "cand" + string(rune('a'+i)),
			Confidence: 0.5,
			Layer:      layers.Layer3,
		}
	}
	b3 := &stubBackend{id: layers.Layer3, out: &layers.Outcome{Completions: items}}
	o := newTestOrchestrator(t, b3)

	resp, err := o.GetCompletions(context.Background(), Request{Identifier: "cand"})
	if err != nil {
		t.Fatalf("GetCompletions: %v", err)
	}
	if len(resp.Data) != 20 {
		t.Errorf("default completion cap = %d, want 20", len(resp.Data))
	}

	limited, err := o.GetCompletions(context.Background(), Request{Identifier: "cand", MaxResults: 5})
	if err != nil {
		t.Fatalf("GetCompletions: %v", err)
	}
	if len(limited.Data) != 5 {
		t.Errorf("explicit cap = %d, want 5", len(limited.Data))
	}
}

func TestOperationsRequireInitialize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = t.TempDir()
	o := New(cfg, logging.NewLogger(logging.Config{Level: logging.ErrorLevel, Output: io.Discard}))

	if _, err := o.FindDefinition(context.Background(), Request{Identifier: "x"}); !errors.IsNotInitialized(err) {
		t.Errorf("FindDefinition err = %v, want not-initialized", err)
	}
	if _, err := o.FindReferences(context.Background(), Request{Identifier: "x"}); !errors.IsNotInitialized(err) {
		t.Errorf("FindReferences err = %v, want not-initialized", err)
	}
	if _, err := o.Rename(context.Background(), Request{Identifier: "x", NewName: "y"}); !errors.IsNotInitialized(err) {
		t.Errorf("Rename err = %v, want not-initialized", err)
	}
	if _, err := o.GetCompletions(context.Background(), Request{Identifier: "x"}); !errors.IsNotInitialized(err) {
		t.Errorf("GetCompletions err = %v, want not-initialized", err)
	}
}

func TestValidateRejectsEmptyRequest(t *testing.T) {
	o := newTestOrchestrator(t, &stubBackend{id: layers.Layer1, out: &layers.Outcome{}})
	_, err := o.FindDefinition(context.Background(), Request{})
	if !errors.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
}
