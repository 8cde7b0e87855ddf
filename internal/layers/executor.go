package layers

import (
	"context"
	"fmt"
	"time"

	"strata/internal/errors"
	"strata/internal/logging"
)

// Meta carries request tracing context through layer calls. It is never
// persisted.
type Meta struct {
	RequestID string
	Operation Operation
}

// Decision is a cascade step's explicit continuation choice.
type Decision int

const (
	// Continue moves the cascade to the next layer.
	Continue Decision = iota
	// Stop ends the cascade; results collected so far are retained.
	Stop
)

// Step is one cascade invocation: given the layer's backend it returns
// the layer's outcome and whether the cascade has sufficient evidence
// to stop. A step that wants to skip its layer returns (nil, Continue,
// nil) without touching the backend.
type Step func(ctx context.Context, id LayerID, b Backend) (*Outcome, Decision, error)

type registration struct {
	backend Backend
	enabled bool
	timeout time.Duration
}

// Executor invokes layer backends with per-layer timeout and error
// isolation. A layer failure is logged and degrades to an empty
// outcome; it never aborts the request.
type Executor struct {
	registry map[LayerID]registration
	logger   *logging.Logger
}

// NewExecutor creates an executor with an empty registry.
func NewExecutor(logger *logging.Logger) *Executor {
	return &Executor{
		registry: make(map[LayerID]registration),
		logger:   logger,
	}
}

// Register binds a backend to its layer id with an enabled flag and a
// per-layer timeout. Registration happens once at initialize; the
// registry is read-only afterwards, so concurrent requests need no
// locking here.
func (e *Executor) Register(b Backend, enabled bool, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	e.registry[b.ID()] = registration{backend: b, enabled: enabled, timeout: timeout}
}

// Enabled reports whether a layer is registered and administratively
// enabled.
func (e *Executor) Enabled(id LayerID) bool {
	reg, ok := e.registry[id]
	return ok && reg.enabled
}

// Backend returns the registered backend for a layer id, or nil.
func (e *Executor) Backend(id LayerID) Backend {
	return e.registry[id].backend
}

// Availability reports, per registered layer, whether its backend is
// usable right now. Diagnostics only.
func (e *Executor) Availability() map[LayerID]bool {
	out := make(map[LayerID]bool, len(e.registry))
	for id, reg := range e.registry {
		out[id] = reg.enabled && reg.backend.Available()
	}
	return out
}

// ExecuteWithLayer invokes fn with the backend bound to id under the
// layer's timeout. Errors and panics from fn are caught, timed, and
// logged; the call degrades to a nil outcome with elapsed time still
// recorded. Disabled or unregistered layers are skipped entirely: zero
// elapsed, no invocation.
func (e *Executor) ExecuteWithLayer(ctx context.Context, id LayerID, meta Meta, fn func(ctx context.Context, b Backend) (*Outcome, error)) (*Outcome, int64) {
	reg, ok := e.registry[id]
	if !ok || !reg.enabled {
		return nil, 0
	}

	start := time.Now()
	out, err := e.invoke(ctx, id, reg, fn)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		layerErr := errors.NewLayerError(string(id), string(meta.Operation), meta.RequestID, err)
		e.logger.Warn("layer failed, degrading to empty result", map[string]interface{}{
			"layer":     string(id),
			"operation": string(meta.Operation),
			"requestId": meta.RequestID,
			"elapsedMs": elapsed,
			"error":     layerErr.Error(),
		})
		return nil, elapsed
	}
	return out, elapsed
}

// invoke runs fn under the per-layer timeout with panic recovery.
func (e *Executor) invoke(ctx context.Context, id LayerID, reg registration, fn func(ctx context.Context, b Backend) (*Outcome, error)) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("layer %s panicked: %v", id, r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, reg.timeout)
	defer cancel()
	return fn(callCtx, reg.backend)
}

// ExecuteCascade invokes step once per layer id, in order, stopping
// once a step signals Stop. Outcomes and elapsed milliseconds collected
// along the way are all retained regardless of where the cascade
// stopped; termination only controls additional invocation. Disabled
// layers are skipped without invocation.
func (e *Executor) ExecuteCascade(ctx context.Context, ids []LayerID, meta Meta, step Step) (map[LayerID]*Outcome, map[LayerID]int64) {
	outcomes := make(map[LayerID]*Outcome, len(ids))
	elapsed := make(map[LayerID]int64, len(ids))

	for _, id := range ids {
		reg, ok := e.registry[id]
		if !ok || !reg.enabled {
			continue
		}

		start := time.Now()
		out, decision, err := e.invokeStep(ctx, id, reg, step)
		ms := time.Since(start).Milliseconds()
		elapsed[id] = ms

		if err != nil {
			layerErr := errors.NewLayerError(string(id), string(meta.Operation), meta.RequestID, err)
			e.logger.Warn("cascade layer failed, continuing", map[string]interface{}{
				"layer":     string(id),
				"operation": string(meta.Operation),
				"requestId": meta.RequestID,
				"elapsedMs": ms,
				"error":     layerErr.Error(),
			})
			continue
		}
		if out != nil {
			outcomes[id] = out
		}
		if decision == Stop {
			break
		}
	}
	return outcomes, elapsed
}

func (e *Executor) invokeStep(ctx context.Context, id LayerID, reg registration, step Step) (out *Outcome, decision Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, decision, err = nil, Continue, fmt.Errorf("layer %s panicked: %v", id, r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, reg.timeout)
	defer cancel()
	return step(callCtx, id, reg.backend)
}
