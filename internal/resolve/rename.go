package resolve

import (
	"context"
	"encoding/json"
	"time"

	"strata/internal/cache"
	"strata/internal/errors"
	"strata/internal/layers"
)

// Rename runs the three-phase rename pipeline: locate instances through
// layers 1+2, teach the pattern backend the rename in a detached
// goroutine, then — when applying and propagation is enabled — extend
// the edit to semantically related identifiers. The orchestrator never
// writes files in any mode; dry run (the default) only previews.
func (o *Orchestrator) Rename(ctx context.Context, req Request) (*RenameResponse, error) {
	md := newMetadata("rename")
	if !o.initialized.Load() {
		return nil, errors.NewNotInitializedError("rename")
	}
	if err := o.validate(&req); err != nil {
		return nil, err
	}
	if req.NewName == "" {
		return nil, errors.NewValidationError("rename needs a newName")
	}

	dryRun := req.IsDryRun()

	// Dry-run previews are cacheable; an applying rename must always
	// see fresh instances.
	key := o.fingerprint("rename", req)
	if dryRun {
		if data, ok := o.cacheGet(key); ok {
			var cached layers.WorkspaceEdit
			if json.Unmarshal(data, &cached) == nil {
				return &RenameResponse{Data: cached, Envelope: md.envelope(LayerPerformance{}, true)}, nil
			}
		}
	}

	meta := md.meta(layers.OpRename)
	elapsed := make(map[layers.LayerID]int64)

	// Phase 1: locate every rename instance via layers 1+2.
	var instances []layers.Location
	for _, id := range []layers.LayerID{layers.Layer1, layers.Layer2} {
		out, ms := o.exec.ExecuteWithLayer(ctx, id, meta,
			func(layerCtx context.Context, b layers.Backend) (*layers.Outcome, error) {
				return b.Resolve(layerCtx, o.layerQuery(layers.OpRename, req, instances))
			})
		elapsed[id] = ms
		if out != nil {
			instances = append(instances, out.References...)
		}
	}
	instances = layers.Dedupe(instances)

	edits := layers.WorkspaceEdit{}
	for _, inst := range instances {
		edits[inst.URI] = append(edits[inst.URI], layers.TextEdit{
			Range:   inst.Range,
			NewText: req.NewName,
		})
	}

	// Phase 2: fire-and-forget learning. Failures are swallowed and
	// logged; the rename result never waits on this.
	if o.learner != nil && len(instances) > 0 {
		o.learnAsync(layers.RenameContext{
			OldName: req.Identifier,
			NewName: req.NewName,
			URI:     req.URI,
		}, md.id)
	}

	// Phase 3: propagation, applied renames only. Awaited before merge,
	// but its failure degrades to an empty edit set.
	if !dryRun && o.propagator != nil && len(instances) > 0 {
		start := time.Now()
		propagated, err := o.propagator.Propagate(ctx, req.Identifier, req.NewName, req.URI)
		elapsed[layers.Layer5] = time.Since(start).Milliseconds()
		if err != nil {
			o.logger.Warn("rename propagation failed, continuing without it", map[string]interface{}{
				"requestId": md.id,
				"error":     err.Error(),
			})
		} else {
			edits.Merge(propagated)
		}
	}

	if dryRun {
		o.cachePut(key, edits, cache.ComputeTTL(confidences(instances), cache.ResultMixed), md)
	}

	return &RenameResponse{
		Data:     edits,
		Envelope: md.envelope(perfFrom(elapsed, time.Since(md.startTime)), false),
	}, nil
}

// learnAsync teaches the pattern backend on a detached goroutine with
// its own error boundary and timeout.
func (o *Orchestrator) learnAsync(rc layers.RenameContext, requestID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Warn("rename learning panicked", map[string]interface{}{
					"requestId": requestID,
					"panic":     r,
				})
			}
		}()

		learnCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := o.learner.Learn(learnCtx, rc); err != nil {
			o.logger.Warn("rename learning failed", map[string]interface{}{
				"requestId": requestID,
				"oldName":   rc.OldName,
				"newName":   rc.NewName,
				"error":     err.Error(),
			})
		}
	}()
}
