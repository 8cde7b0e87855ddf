// Package search is the fast-path search engine: a bounded pool of
// short-lived ripgrep processes with a small TTL result cache and a
// bounded filesystem scan as the fallback when ripgrep is missing,
// failing, or out of time.
package search

import (
	"context"
	"os/exec"
	"regexp"
	"sync/atomic"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"strata/internal/errors"
	"strata/internal/logging"
)

// Match is one text occurrence. Line is 1-based as ripgrep reports it;
// Column is the 0-based byte offset of the match within the line.
type Match struct {
	Path   string
	Line   int
	Column int
	Text   string
	Word   string
}

// Query describes one search call.
type Query struct {
	Pattern    string // regular expression (RE2-compatible subset shared by rg and the fallback scan)
	Dir        string // scope directory; empty means the workspace root
	MaxMatches int    // cap; 0 uses the engine default
}

// Config controls pool size, timeouts, caching and fallback bounds.
type Config struct {
	WorkspaceRoot        string
	MaxWorkers           int
	Timeout              time.Duration
	MaxMatches           int
	FallbackMaxFiles     int
	FallbackMaxFileBytes int
	CacheTTL             time.Duration
	CacheMaxEntries      int
	Exclude              []string
}

// Stats reports pool and cache/fallback counters for diagnostics.
type Stats struct {
	Workers     int    `json:"workers"`
	InFlight    int    `json:"inFlight"`
	CacheHits   int64  `json:"cacheHits"`
	CacheMisses int64  `json:"cacheMisses"`
	Fallbacks   int64  `json:"fallbacks"`
	RipgrepPath string `json:"ripgrepPath,omitempty"`
}

// Engine runs bounded-concurrency searches. Calls beyond pool capacity
// queue on the semaphore rather than spawning more processes.
type Engine struct {
	cfg     Config
	logger  *logging.Logger
	sem     chan struct{}
	cache   *resultCache
	ignorer *ignore.GitIgnore
	rgPath  string

	inFlight  atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
	fallbacks atomic.Int64
	closed    atomic.Bool
}

// NewEngine builds an engine. A missing rg binary is not an error: every
// search then goes through the bounded fallback scan.
func NewEngine(cfg Config, logger *logging.Logger) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = 1000
	}
	if cfg.FallbackMaxFiles <= 0 {
		cfg.FallbackMaxFiles = 300
	}
	if cfg.FallbackMaxFileBytes <= 0 {
		cfg.FallbackMaxFileBytes = 1 << 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 256
	}

	e := &Engine{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxWorkers),
		cache:  newResultCache(cfg.CacheMaxEntries, cfg.CacheTTL),
	}

	if path, err := exec.LookPath("rg"); err == nil {
		e.rgPath = path
	} else {
		logger.Warn("rg not found on PATH, using fallback scan for all searches", nil)
	}

	if ign, err := ignore.CompileIgnoreFile(cfg.WorkspaceRoot + "/.gitignore"); err == nil {
		e.ignorer = ign
	}

	return e
}

// WordBoundaryPattern builds the regex used to find whole-identifier
// occurrences of a symbol.
func WordBoundaryPattern(identifier string) string {
	return `\b` + regexp.QuoteMeta(identifier) + `\b`
}

// Search runs a buffered search: collect all matches (up to the cap),
// then return. Zero matches is an empty slice, not an error. On ripgrep
// failure or timeout the bounded fallback scan answers instead.
func (e *Engine) Search(ctx context.Context, q Query) ([]Match, error) {
	if e.closed.Load() {
		return nil, errors.New(errors.SearchFailed, "search engine is closed", nil)
	}
	e.normalize(&q)

	if cached, ok := e.cache.get(q); ok {
		e.hits.Add(1)
		return cached, nil
	}
	e.misses.Add(1)

	matches, err := e.searchOnce(ctx, q)
	if err != nil {
		e.fallbacks.Add(1)
		e.logger.Debug("search falling back to filesystem scan", map[string]interface{}{
			"pattern": q.Pattern,
			"reason":  err.Error(),
		})
		matches, err = e.fallbackScan(ctx, q)
		if err != nil {
			return nil, errors.New(errors.SearchFailed, "search and fallback scan both failed", err)
		}
	}

	e.cache.put(q, matches)
	return matches, nil
}

// searchOnce runs a single ripgrep pass under the pool semaphore and
// the per-call timeout.
func (e *Engine) searchOnce(ctx context.Context, q Query) ([]Match, error) {
	if e.rgPath == "" {
		return nil, errors.New(errors.SearchFailed, "rg unavailable", nil)
	}

	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	matches := make([]Match, 0, 16)
	err := runRipgrep(callCtx, e.rgPath, q, e.cfg.Exclude, func(m Match) bool {
		matches = append(matches, m)
		return len(matches) < q.MaxMatches
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		e.inFlight.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	e.inFlight.Add(-1)
	<-e.sem
}

func (e *Engine) normalize(q *Query) {
	if q.Dir == "" {
		q.Dir = e.cfg.WorkspaceRoot
	}
	if q.MaxMatches <= 0 || q.MaxMatches > e.cfg.MaxMatches {
		q.MaxMatches = e.cfg.MaxMatches
	}
}

// Invalidate drops cached results. The cache is short-lived, so a full
// drop on any file change is cheaper than tracking per-path keys here.
func (e *Engine) Invalidate() {
	e.cache.clear()
}

// Stats returns pool and cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Workers:     e.cfg.MaxWorkers,
		InFlight:    int(e.inFlight.Load()),
		CacheHits:   e.hits.Load(),
		CacheMisses: e.misses.Load(),
		Fallbacks:   e.fallbacks.Load(),
		RipgrepPath: e.rgPath,
	}
}

// Close marks the engine closed and waits for in-flight workers by
// draining the semaphore. Subsequent calls are rejected.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < cap(e.sem); i++ {
		e.sem <- struct{}{}
	}
	e.cache.clear()
	return nil
}
