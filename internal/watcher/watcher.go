// Package watcher invalidates resolution cache entries when workspace
// files change. It watches the workspace tree recursively via fsnotify,
// debounces event bursts per path, and hands settled changes to the
// orchestrator's invalidation hook.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"strata/internal/logging"
)

// ChangeHandler receives the path of a file whose changes have settled.
type ChangeHandler func(path string)

// Config controls the watcher.
type Config struct {
	Root       string
	DebounceMs int
	Exclude    []string
}

// Stats reports watcher counters for diagnostics.
type Stats struct {
	WatchedDirs  int   `json:"watchedDirs"`
	EventsSeen   int64 `json:"eventsSeen"`
	Invalidation int64 `json:"invalidations"`
}

// Watcher drives invalidation from filesystem events.
type Watcher struct {
	cfg       Config
	logger    *logging.Logger
	handler   ChangeHandler
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	excluded  map[string]bool

	watchedDirs   atomic.Int64
	eventsSeen    atomic.Int64
	invalidations atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher over cfg.Root; Start begins delivery.
func New(cfg Config, handler ChangeHandler, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(cfg.Exclude))
	for _, d := range cfg.Exclude {
		excluded[d] = true
	}

	return &Watcher{
		cfg:       cfg,
		logger:    logger,
		handler:   handler,
		fsw:       fsw,
		debouncer: NewDebouncer(time.Duration(cfg.DebounceMs) * time.Millisecond),
		excluded:  excluded,
	}, nil
}

// Start adds the workspace directories to the watch set and begins the
// event loop. Blocks until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.cfg.Root); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(runCtx)

	w.logger.Info("watcher started", map[string]interface{}{
		"root": w.cfg.Root,
		"dirs": w.watchedDirs.Load(),
	})

	<-runCtx.Done()
	w.wg.Wait()
	return nil
}

// Stop ends the event loop and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.debouncer.Stop()
	_ = w.fsw.Close()
}

// Stats returns watcher counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		WatchedDirs:  int(w.watchedDirs.Load()),
		EventsSeen:   w.eventsSeen.Load(),
		Invalidation: w.invalidations.Load(),
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.eventsSeen.Add(1)

	if w.isExcluded(event.Name) {
		return
	}

	// New directories join the watch set so the tree stays covered.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err == nil {
				w.watchedDirs.Add(1)
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	path := event.Name
	w.debouncer.Trigger(path, func() {
		w.invalidations.Add(1)
		w.logger.Debug("file change settled", map[string]interface{}{"path": path})
		w.handler(path)
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != root) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("failed to watch directory", map[string]interface{}{
				"path":  path,
				"error": addErr.Error(),
			})
			return nil
		}
		w.watchedDirs.Add(1)
		return nil
	})
}

func (w *Watcher) isExcluded(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if w.excluded[part] {
			return true
		}
	}
	return false
}
