package resolve

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"strata/internal/cache"
	"strata/internal/errors"
	"strata/internal/layers"
)

const defaultCompletionLimit = 20

// GetCompletions runs the pattern (layer4) and concept (layer3)
// suggestion sources in parallel — they have no ordering dependency —
// then merges and ranks by confidence, ties broken alphabetically.
func (o *Orchestrator) GetCompletions(ctx context.Context, req Request) (*CompletionsResponse, error) {
	md := newMetadata("getCompletions")
	if !o.initialized.Load() {
		return nil, errors.NewNotInitializedError("getCompletions")
	}
	if err := o.validate(&req); err != nil {
		return nil, err
	}

	key := o.fingerprint("getCompletions", req)
	if data, ok := o.cacheGet(key); ok {
		var cached []layers.CompletionItem
		if json.Unmarshal(data, &cached) == nil {
			return &CompletionsResponse{Data: cached, Envelope: md.envelope(LayerPerformance{}, true)}, nil
		}
	}

	meta := md.meta(layers.OpGetCompletions)
	query := o.layerQuery(layers.OpGetCompletions, req, nil)

	var fromConcepts, fromPatterns []layers.CompletionItem
	var msConcepts, msPatterns int64

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, ms := o.exec.ExecuteWithLayer(groupCtx, layers.Layer3, meta,
			func(layerCtx context.Context, b layers.Backend) (*layers.Outcome, error) {
				return b.Resolve(layerCtx, query)
			})
		msConcepts = ms
		if out != nil {
			fromConcepts = out.Completions
		}
		return nil
	})
	g.Go(func() error {
		out, ms := o.exec.ExecuteWithLayer(groupCtx, layers.Layer4, meta,
			func(layerCtx context.Context, b layers.Backend) (*layers.Outcome, error) {
				return b.Resolve(layerCtx, query)
			})
		msPatterns = ms
		if out != nil {
			fromPatterns = out.Completions
		}
		return nil
	})
	_ = g.Wait() // layer failures already degraded inside the executor

	combined := make([]layers.CompletionItem, 0, len(fromPatterns)+len(fromConcepts))
	combined = append(combined, fromPatterns...)
	combined = append(combined, fromConcepts...)
	merged := dedupeCompletions(combined)
	layers.RankCompletions(merged)

	limit := req.MaxResults
	if limit <= 0 {
		limit = o.cfg.Completion.Limit
	}
	if limit <= 0 {
		limit = defaultCompletionLimit
	}
	merged = layers.TruncateCompletions(merged, limit)
	if merged == nil {
		merged = []layers.CompletionItem{}
	}

	ttl := cache.ComputeTTL(completionConfidences(merged), cache.ResultMixed)
	o.cachePut(key, merged, ttl, md)

	elapsed := map[layers.LayerID]int64{
		layers.Layer3: msConcepts,
		layers.Layer4: msPatterns,
	}
	return &CompletionsResponse{
		Data:     merged,
		Envelope: md.envelope(perfFrom(elapsed, time.Since(md.startTime)), false),
	}, nil
}

// dedupeCompletions keeps the first-seen item per label. The result is
// a fresh slice so callers may pass slices still owned by a backend.
func dedupeCompletions(items []layers.CompletionItem) []layers.CompletionItem {
	seen := make(map[string]bool, len(items))
	out := make([]layers.CompletionItem, 0, len(items))
	for _, item := range items {
		if seen[item.Label] {
			continue
		}
		seen[item.Label] = true
		out = append(out, item)
	}
	return out
}

func completionConfidences(items []layers.CompletionItem) []float64 {
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = item.Confidence
	}
	return out
}
