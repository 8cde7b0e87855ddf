package resolve

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"strata/internal/project"
)

const (
	warmMaxFiles       = 50
	warmMaxIdentifiers = 20
	warmTimeout        = 60 * time.Second
)

// declRe finds identifiers introduced by a declaration keyword; these
// are the symbols most likely to be asked about first.
var declRe = regexp.MustCompile(`\b(?:func|function|fn|def|class|interface|struct|type|trait|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// WarmCacheForWorkspace pre-resolves the workspace's most frequently
// declared identifiers so early requests hit a warm cache. It runs
// detached with its own error boundary and is never joined by a
// request path.
func (o *Orchestrator) WarmCacheForWorkspace(root string) {
	if !o.initialized.Load() {
		return
	}
	if root == "" {
		root = o.workspaceRoot
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Warn("cache warming panicked", map[string]interface{}{"panic": r})
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()

		start := time.Now()
		warmed := o.warm(ctx, root)

		if o.cfg.Cache.SnapshotPath != "" {
			if err := o.store.Snapshot(o.snapshotPath()); err != nil {
				o.logger.Warn("warm snapshot failed", map[string]interface{}{"error": err.Error()})
			}
		}
		o.logger.Info("cache warming finished", map[string]interface{}{
			"identifiers": warmed,
			"elapsedMs":   time.Since(start).Milliseconds(),
		})
	}()
}

// WarmNow runs the warming pass synchronously and persists the
// snapshot. The detached hook wraps this; direct callers (the CLI warm
// command) get to wait for completion.
func (o *Orchestrator) WarmNow(ctx context.Context, root string) int {
	if !o.initialized.Load() {
		return 0
	}
	if root == "" {
		root = o.workspaceRoot
	}
	warmed := o.warm(ctx, root)
	if o.cfg.Cache.SnapshotPath != "" {
		if err := o.store.Snapshot(o.snapshotPath()); err != nil {
			o.logger.Warn("warm snapshot failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return warmed
}

func (o *Orchestrator) warm(ctx context.Context, root string) int {
	info := project.Detect(root)
	o.logger.Debug("warming cache for workspace", map[string]interface{}{
		"root":     root,
		"language": info.Language,
		"project":  info.Name,
	})

	files := o.sampleSourceFiles(root, warmMaxFiles)

	// Count declared identifiers across the sample in parallel; the
	// walker is I/O bound so a handful of goroutines is enough.
	var mu sync.Mutex
	counts := make(map[string]int)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			mu.Lock()
			for _, m := range declRe.FindAllStringSubmatch(string(data), -1) {
				counts[m[1]]++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	type freq struct {
		name  string
		count int
	}
	ranked := make([]freq, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, freq{name, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})

	warmed := 0
	for _, f := range ranked {
		if warmed >= warmMaxIdentifiers || ctx.Err() != nil {
			break
		}
		// The full cascade populates real cache keys; the fast path
		// would warm nothing.
		if _, err := o.FindDefinition(ctx, Request{Identifier: f.name}); err == nil {
			warmed++
		}
	}
	return warmed
}

func (o *Orchestrator) sampleSourceFiles(root string, max int) []string {
	excluded := make(map[string]bool, len(o.cfg.Search.Exclude))
	for _, d := range o.cfg.Search.Exclude {
		excluded[d] = true
	}

	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excluded[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rs", ".java", ".kt":
			files = append(files, path)
		}
		if len(files) >= max {
			return filepath.SkipAll
		}
		return nil
	})
	return files
}
