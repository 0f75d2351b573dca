// Package watcher re-syncs technologies when their docs change on
// disk. Filesystem events are coalesced per technology; each trigger
// runs one incremental sync.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

// DefaultDebounce is the quiet period before a change triggers a sync.
const DefaultDebounce = 2 * time.Second

// SyncFunc runs one sync for a technology. Errors are logged, not
// fatal; the watcher keeps running.
type SyncFunc func(ctx context.Context, technology, docsDir string) error

// Target is one watched technology.
type Target struct {
	Technology string
	DocsDir    string
}

// Watcher watches technology docs directories and triggers debounced
// re-syncs.
type Watcher struct {
	targets   []Target
	sync      SyncFunc
	debouncer *Debouncer
	logger    *slog.Logger

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	stopped   bool
}

// New creates a watcher over the given targets.
func New(targets []Target, syncFn SyncFunc, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		targets:   targets,
		sync:      syncFn,
		debouncer: NewDebouncer(debounce),
		logger:    logger,
	}
}

// Start watches all target directories until the context is cancelled
// or Stop is called. Blocks.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.fsWatcher = fsw
	w.mu.Unlock()

	for _, target := range w.targets {
		if err := addRecursive(fsw, target.DocsDir); err != nil {
			w.logger.Warn("failed to watch directory",
				slog.String("technology", target.Technology),
				slog.String("path", target.DocsDir),
				slog.String("error", err.Error()))
		}
	}

	defer w.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()

		case batch, ok := <-w.debouncer.Triggers():
			if !ok {
				return nil
			}
			w.runSyncs(ctx, batch)

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	// New subdirectories must join the watch before files land in them.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(fsw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
			w.notify(event.Name)
			return
		}
	}

	if !isMarkdown(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		w.notify(event.Name)
	}
}

// notify maps an event path to its technology and feeds the debouncer.
func (w *Watcher) notify(path string) {
	for _, target := range w.targets {
		rel, err := filepath.Rel(target.DocsDir, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			w.debouncer.Add(target.Technology)
			return
		}
	}
}

func (w *Watcher) runSyncs(ctx context.Context, technologies []string) {
	for _, tech := range technologies {
		target, ok := w.findTarget(tech)
		if !ok {
			continue
		}
		if err := w.sync(ctx, target.Technology, target.DocsDir); err != nil {
			level := slog.LevelWarn
			if ragerr.IsFatal(err) {
				level = slog.LevelError
			}
			w.logger.Log(ctx, level, "watch-triggered sync failed",
				slog.String("technology", tech),
				slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) findTarget(technology string) (Target, bool) {
	for _, t := range w.targets {
		if t.Technology == technology {
			return t, true
		}
	}
	return Target{}, false
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// addRecursive watches a directory and everything below it, skipping
// hidden directories.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		return fsw.Add(path)
	})
}
