package resolve

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"strata/internal/cache"
	"strata/internal/config"
	"strata/internal/errors"
	"strata/internal/layers"
	"strata/internal/layers/concepts"
	"strata/internal/layers/patterns"
	"strata/internal/layers/propagate"
	"strata/internal/layers/structural"
	"strata/internal/layers/textsearch"
	"strata/internal/logging"
	"strata/internal/paths"
	"strata/internal/search"
)

// layer2Gate skips AST analysis once enough cheap evidence has
// accumulated.
const layer2Gate = 10

// learner is the narrow contract the rename pipeline teaches.
type learner interface {
	Learn(ctx context.Context, rc layers.RenameContext) error
}

// propagator extends a rename to semantically related identifiers.
type propagator interface {
	Propagate(ctx context.Context, oldName, newName, uri string) (layers.WorkspaceEdit, error)
}

// Orchestrator composes the cache, the layer executor and the search
// engine into the public resolution operations. It holds no per-request
// mutable state beyond locals, so concurrent requests interact only
// through the shared cache.
type Orchestrator struct {
	workspaceRoot string
	cfg           *config.Config
	logger        *logging.Logger

	store      *cache.Store
	engine     *search.Engine
	exec       *layers.Executor
	learner    learner
	propagator propagator

	patternStore *patterns.Store

	initialized atomic.Bool
	lifecycle   sync.Mutex
}

// New creates an orchestrator for a workspace. Call Initialize before
// any resolution operation.
func New(cfg *config.Config, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		workspaceRoot: cfg.WorkspaceRoot,
		cfg:           cfg,
		logger:        logger,
	}
}

// Initialize builds the search pool, the cache store and the layer
// backends, loads the concept ontology and pattern seeds, and restores
// the warm snapshot when one is fresh enough. Idempotent.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	if o.initialized.Load() {
		return nil
	}

	o.engine = search.NewEngine(search.Config{
		WorkspaceRoot:        o.workspaceRoot,
		MaxWorkers:           o.cfg.Search.MaxWorkers,
		Timeout:              time.Duration(o.cfg.Search.TimeoutMs) * time.Millisecond,
		MaxMatches:           o.cfg.Search.MaxMatches,
		FallbackMaxFiles:     o.cfg.Search.FallbackMaxFiles,
		FallbackMaxFileBytes: o.cfg.Search.FallbackMaxFileBytes,
		CacheTTL:             time.Duration(o.cfg.Search.CacheTtlSeconds) * time.Second,
		CacheMaxEntries:      o.cfg.Search.CacheMaxEntries,
		Exclude:              o.cfg.Search.Exclude,
	}, o.logger)

	o.store = cache.NewStore(cache.StoreConfig{
		MaxEntries:      o.cfg.Cache.MaxEntries,
		JanitorInterval: time.Duration(o.cfg.Cache.JanitorIntervalSeconds) * time.Second,
	}, o.logger)

	o.exec = layers.NewExecutor(o.logger)
	o.registerBackends(ctx)

	if o.cfg.Cache.SnapshotPath != "" {
		restored, err := o.store.Restore(o.snapshotPath(), time.Duration(o.cfg.Cache.SnapshotMaxAgeHours)*time.Hour)
		if err != nil {
			o.logger.Warn("cache snapshot restore failed", map[string]interface{}{"error": err.Error()})
		} else if restored > 0 {
			o.logger.Info("cache snapshot restored", map[string]interface{}{"entries": restored})
		}
	}

	o.initialized.Store(true)
	o.logger.Info("orchestrator initialized", map[string]interface{}{
		"workspace": o.workspaceRoot,
	})
	return nil
}

func (o *Orchestrator) registerBackends(ctx context.Context) {
	register := func(b layers.Backend) {
		id := string(b.ID())
		o.exec.Register(b, o.cfg.LayerEnabled(id), time.Duration(o.cfg.LayerTimeoutMs(id))*time.Millisecond)
	}

	register(textsearch.New(o.engine, o.workspaceRoot))

	register(structural.New(structural.Config{
		WorkspaceRoot: o.workspaceRoot,
		IndexPath:     o.cfg.Structural.IndexPath,
		MaxFiles:      o.cfg.Structural.MaxFiles,
		MaxFileBytes:  o.cfg.Structural.MaxFileSizeBytes,
		Exclude:       o.cfg.Search.Exclude,
	}))

	ontology, err := concepts.LoadOntology(o.workspacePath(o.cfg.Concepts.Path))
	if err != nil {
		o.logger.Warn("concept ontology failed to load, using defaults", map[string]interface{}{"error": err.Error()})
		ontology = concepts.DefaultOntology()
	}
	register(concepts.New(ontology, o.engine, o.workspaceRoot, o.cfg.Concepts.MaxVariants))

	store, err := patterns.OpenStore(o.workspacePath(o.cfg.Patterns.DBPath))
	if err != nil {
		o.logger.Warn("pattern store unavailable, layer4 disabled", map[string]interface{}{"error": err.Error()})
	} else {
		o.patternStore = store
		if seeded, seedErr := store.LoadSeeds(ctx, o.workspacePath(o.cfg.Patterns.SeedPath)); seedErr != nil {
			o.logger.Warn("pattern seeds failed to load", map[string]interface{}{"error": seedErr.Error()})
		} else if seeded > 0 {
			o.logger.Debug("pattern seeds loaded", map[string]interface{}{"count": seeded})
		}
		patternBackend := patterns.New(store, o.engine, o.workspaceRoot)
		register(patternBackend)
		if o.cfg.Patterns.Learning {
			o.learner = patternBackend
		}
	}

	propagateBackend := propagate.New(o.engine, o.workspaceRoot)
	o.exec.Register(propagateBackend, o.cfg.Propagation.Enabled && o.cfg.LayerEnabled(string(layers.Layer5)),
		time.Duration(o.cfg.LayerTimeoutMs(string(layers.Layer5)))*time.Millisecond)
	if o.cfg.Propagation.Enabled {
		o.propagator = propagateBackend
	}
}

// Dispose snapshots the cache best-effort, releases the search pool and
// closes the pattern store. Idempotent.
func (o *Orchestrator) Dispose() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	if !o.initialized.Load() {
		return nil
	}
	o.initialized.Store(false)

	if o.cfg.Cache.SnapshotPath != "" && o.store != nil {
		if err := o.store.Snapshot(o.snapshotPath()); err != nil {
			o.logger.Warn("cache snapshot failed on dispose", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.store != nil {
		o.store.Close()
	}
	if o.engine != nil {
		_ = o.engine.Close()
	}
	if o.patternStore != nil {
		_ = o.patternStore.Close()
	}
	o.logger.Info("orchestrator disposed", nil)
	return nil
}

// FindDefinition resolves a symbol's definitions through the layer
// cascade: layer1 text search short-circuits on an exact hit, layer2
// runs only while evidence is thin, layers 4 and 5 only with an anchor.
func (o *Orchestrator) FindDefinition(ctx context.Context, req Request) (*DefinitionsResponse, error) {
	md := newMetadata("findDefinition")
	if !o.initialized.Load() {
		return nil, errors.NewNotInitializedError("findDefinition")
	}
	if err := o.validate(&req); err != nil {
		return nil, err
	}

	key := o.fingerprint("findDefinition", req)
	if data, ok := o.cacheGet(key); ok {
		var cached []layers.Location
		if json.Unmarshal(data, &cached) == nil {
			return &DefinitionsResponse{Data: cached, Envelope: md.envelope(LayerPerformance{}, true)}, nil
		}
	}

	var collected []layers.Location
	exactExit := false

	_, elapsed := o.exec.ExecuteCascade(ctx, layers.AllLayers, md.meta(layers.OpFindDefinition),
		func(stepCtx context.Context, id layers.LayerID, b layers.Backend) (*layers.Outcome, layers.Decision, error) {
			switch id {
			case layers.Layer2:
				if len(collected) >= layer2Gate {
					return nil, layers.Continue, nil
				}
			case layers.Layer4, layers.Layer5:
				if len(collected) == 0 {
					return nil, layers.Continue, nil
				}
			}

			out, err := b.Resolve(stepCtx, o.layerQuery(layers.OpFindDefinition, req, collected))
			if err != nil {
				return nil, layers.Continue, err
			}
			collected = append(collected, out.Definitions...)

			if id == layers.Layer1 && out.HasExact() {
				exactExit = true
				return out, layers.Stop, nil
			}
			return out, layers.Continue, nil
		})

	data := layers.Dedupe(collected)
	layers.RankDefinitions(data)
	data = layers.Truncate(data, o.maxResults(req))
	if data == nil {
		data = []layers.Location{}
	}

	resultType := cache.ResultMixed
	if exactExit {
		resultType = cache.ResultExact
	}
	o.cachePut(key, data, cache.ComputeTTL(confidences(data), resultType), md)

	return &DefinitionsResponse{
		Data:     data,
		Envelope: md.envelope(perfFrom(elapsed, time.Since(md.startTime)), false),
	}, nil
}

// FindReferences resolves a symbol's references. References need
// broader corroboration than a single exact hit, so layers 1-3 always
// run; layers 4 and 5 follow unconditionally when enabled.
func (o *Orchestrator) FindReferences(ctx context.Context, req Request) (*ReferencesResponse, error) {
	md := newMetadata("findReferences")
	if !o.initialized.Load() {
		return nil, errors.NewNotInitializedError("findReferences")
	}
	if err := o.validate(&req); err != nil {
		return nil, err
	}

	key := o.fingerprint("findReferences", req)
	if data, ok := o.cacheGet(key); ok {
		var cached []layers.Location
		if json.Unmarshal(data, &cached) == nil {
			return &ReferencesResponse{Data: cached, Envelope: md.envelope(LayerPerformance{}, true)}, nil
		}
	}

	meta := md.meta(layers.OpFindReferences)
	var collected []layers.Location

	_, elapsed := o.exec.ExecuteCascade(ctx, []layers.LayerID{layers.Layer1, layers.Layer2, layers.Layer3}, meta,
		func(stepCtx context.Context, id layers.LayerID, b layers.Backend) (*layers.Outcome, layers.Decision, error) {
			out, err := b.Resolve(stepCtx, o.layerQuery(layers.OpFindReferences, req, collected))
			if err != nil {
				return nil, layers.Continue, err
			}
			collected = append(collected, out.References...)
			return out, layers.Continue, nil
		})

	for _, id := range []layers.LayerID{layers.Layer4, layers.Layer5} {
		out, ms := o.exec.ExecuteWithLayer(ctx, id, meta,
			func(layerCtx context.Context, b layers.Backend) (*layers.Outcome, error) {
				return b.Resolve(layerCtx, o.layerQuery(layers.OpFindReferences, req, collected))
			})
		elapsed[id] = ms
		if out != nil {
			collected = append(collected, out.References...)
		}
	}

	data := layers.Dedupe(collected)
	layers.RankReferences(data)
	data = layers.Truncate(data, o.maxResults(req))
	if data == nil {
		data = []layers.Location{}
	}

	o.cachePut(key, data, cache.ComputeTTL(confidences(data), cache.ResultMixed), md)

	return &ReferencesResponse{
		Data:     data,
		Envelope: md.envelope(perfFrom(elapsed, time.Since(md.startTime)), false),
	}, nil
}

// FindDefinitionFast is the fast path: a single bounded text search
// with kind inference, no cascade, no resolution cache. It trades some
// precision for a hard, small latency bound.
func (o *Orchestrator) FindDefinitionFast(ctx context.Context, req Request) (*DefinitionsResponse, error) {
	md := newMetadata("findDefinitionFast")
	if !o.initialized.Load() {
		return nil, errors.NewNotInitializedError("findDefinition")
	}
	if err := o.validate(&req); err != nil {
		return nil, err
	}

	data, ms, err := o.fastSearch(ctx, req, true)
	if err != nil {
		return nil, errors.NewOperationError("findDefinition", md.id, err)
	}
	layers.RankDefinitions(data)
	data = layers.Truncate(data, o.maxResults(req))

	perf := LayerPerformance{Layer1: ms, Total: time.Since(md.startTime).Milliseconds()}
	return &DefinitionsResponse{Data: data, Envelope: md.envelope(perf, false)}, nil
}

// FindReferencesFast is the fast path for references.
func (o *Orchestrator) FindReferencesFast(ctx context.Context, req Request) (*ReferencesResponse, error) {
	md := newMetadata("findReferencesFast")
	if !o.initialized.Load() {
		return nil, errors.NewNotInitializedError("findReferences")
	}
	if err := o.validate(&req); err != nil {
		return nil, err
	}

	data, ms, err := o.fastSearch(ctx, req, false)
	if err != nil {
		return nil, errors.NewOperationError("findReferences", md.id, err)
	}
	layers.RankReferences(data)
	data = layers.Truncate(data, o.maxResults(req))

	perf := LayerPerformance{Layer1: ms, Total: time.Since(md.startTime).Milliseconds()}
	return &ReferencesResponse{Data: data, Envelope: md.envelope(perf, false)}, nil
}

// fastSearch queries the engine directly with a word-boundary pattern
// scoped to the request's directory, converting raw matches into typed
// results. Zero matches is an empty slice, never an error.
func (o *Orchestrator) fastSearch(ctx context.Context, req Request, definitionsOnly bool) ([]layers.Location, int64, error) {
	start := time.Now()
	matches, err := o.engine.Search(ctx, search.Query{
		Pattern:    search.WordBoundaryPattern(req.Identifier),
		Dir:        paths.ScopeDir(req.URI, o.workspaceRoot),
		MaxMatches: o.maxResults(req),
	})
	ms := time.Since(start).Milliseconds()
	if err != nil {
		return nil, ms, err
	}

	out := make([]layers.Location, 0, len(matches))
	for _, m := range matches {
		kind, decl := textsearch.Classify(m.Text, m.Column, req.Identifier)
		if definitionsOnly && !decl {
			continue
		}
		source := layers.SourceExact
		conf := 0.85
		if definitionsOnly {
			conf = 0.9
		} else if decl && !req.IncludeDeclaration {
			continue
		}
		line := m.Line - 1
		out = append(out, layers.Location{
			URI: paths.PathToURI(m.Path),
			Range: layers.Range{
				Start: layers.Position{Line: line, Character: m.Column},
				End:   layers.Position{Line: line, Character: m.Column + len(req.Identifier)},
			},
			Kind:       kind,
			Name:       req.Identifier,
			Source:     source,
			Confidence: conf,
			Layer:      layers.Layer1,
		})
	}
	return layers.Dedupe(out), ms, nil
}

// Engine exposes the fast-path search engine for raw occurrence scans
// that bypass layer resolution.
func (o *Orchestrator) Engine() *search.Engine {
	return o.engine
}

// InvalidateCacheForFile purges every cache entry derived from the
// given file, plus workspace-global entries whose results may span it.
// The search engine's own short-lived cache is dropped as well.
func (o *Orchestrator) InvalidateCacheForFile(uri string) int {
	if !o.initialized.Load() {
		return 0
	}
	normalized := paths.NormalizeURI(uri, o.workspaceRoot)
	removed := o.store.InvalidateURI(normalized)
	o.engine.Invalidate()
	if removed > 0 {
		o.logger.Debug("cache invalidated for file", map[string]interface{}{
			"uri":     normalized,
			"removed": removed,
		})
	}
	return removed
}

// Stats reports layer availability and cache/search counters.
type Stats struct {
	Initialized bool                    `json:"initialized"`
	Workspace   string                  `json:"workspace"`
	Layers      map[layers.LayerID]bool `json:"layers"`
	Cache       cache.StoreStats        `json:"cache"`
	Search      search.Stats            `json:"search"`
}

// Stats returns current diagnostics.
func (o *Orchestrator) Stats() Stats {
	s := Stats{
		Initialized: o.initialized.Load(),
		Workspace:   o.workspaceRoot,
	}
	if !s.Initialized {
		return s
	}
	s.Layers = o.exec.Availability()
	s.Cache = o.store.Stats()
	s.Search = o.engine.Stats()
	return s
}

func (o *Orchestrator) layerQuery(op layers.Operation, req Request, anchors []layers.Location) layers.Query {
	return layers.Query{
		Operation:          op,
		Identifier:         req.Identifier,
		URI:                req.URI,
		Position:           req.Position,
		Limit:              o.maxResults(req),
		IncludeDeclaration: req.IncludeDeclaration,
		NewName:            req.NewName,
		Anchors:            anchors,
	}
}

func (o *Orchestrator) maxResults(req Request) int {
	if req.MaxResults > 0 {
		return req.MaxResults
	}
	return o.cfg.Layers.MaxResults
}

func (o *Orchestrator) fingerprint(operation string, req Request) string {
	return cache.Fingerprint(operation, cache.Fields{
		Identifier:         req.Identifier,
		URI:                paths.NormalizeURI(req.URI, o.workspaceRoot),
		Line:               req.Position.Line,
		Character:          req.Position.Character,
		MaxResults:         req.MaxResults,
		IncludeDeclaration: req.IncludeDeclaration,
		NewName:            req.NewName,
		DryRun:             req.IsDryRun(),
	})
}

func (o *Orchestrator) cacheGet(key string) (json.RawMessage, bool) {
	return o.store.Get(key)
}

func (o *Orchestrator) cachePut(key string, value interface{}, ttl time.Duration, md *requestMetadata) {
	if err := o.store.Put(key, value, ttl); err != nil {
		o.logger.Warn("cache populate failed", map[string]interface{}{
			"requestId": md.id,
			"error":     err.Error(),
		})
	}
}

func (o *Orchestrator) workspacePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.workspaceRoot, p)
}

func (o *Orchestrator) snapshotPath() string {
	return o.workspacePath(o.cfg.Cache.SnapshotPath)
}
