// Package watch reloads page files into an editor when they change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// LoadFunc receives a decoded page after its file changed.
type LoadFunc func(ctx context.Context, path string, p *domain.PageSchema) error

// PageWatcher watches page JSON files and hands every valid revision to a
// LoadFunc. Files that fail to decode are reported and skipped; the last
// good page stays loaded.
type PageWatcher struct {
	watcher  *fsnotify.Watcher
	onLoad   LoadFunc
	log      *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	watching map[string]bool // absolute path
	dirs     map[string]int  // watched directory -> file count
	timers   map[string]*time.Timer
	// OnError, when set, is called for files that could not be reloaded.
	OnError func(path string, err error)
}

// New creates a watcher. A debounce of zero uses DefaultDebounce.
func New(onLoad LoadFunc, debounce time.Duration, logger *slog.Logger) (*PageWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageWatcher{
		watcher:  watcher,
		onLoad:   onLoad,
		log:      logger,
		debounce: debounce,
		watching: make(map[string]bool),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch starts watching path. The directory is watched rather than the
// file so that editors which replace the file on save are still seen.
func (w *PageWatcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching[absPath] {
		return nil
	}
	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.watching[absPath] = true
	return nil
}

// Unwatch stops watching path.
func (w *PageWatcher) Unwatch(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching[absPath] {
		return
	}
	delete(w.watching, absPath)
	if t, ok := w.timers[absPath]; ok {
		t.Stop()
		delete(w.timers, absPath)
	}
	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Run dispatches file events until ctx is done or the watcher is closed.
func (w *PageWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.schedule(ctx, absPath)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("page watcher error", "err", err)
		}
	}
}

// Close stops the underlying watcher and pending reloads.
func (w *PageWatcher) Close() error {
	w.stopTimers()
	return w.watcher.Close()
}

func (w *PageWatcher) schedule(ctx context.Context, absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching[absPath] {
		return
	}
	if t, ok := w.timers[absPath]; ok {
		t.Stop()
	}
	w.timers[absPath] = time.AfterFunc(w.debounce, func() {
		if err := w.Reload(ctx, absPath); err != nil {
			w.log.Warn("page file not reloaded", "path", absPath, "err", err)
			w.mu.Lock()
			onErr := w.OnError
			w.mu.Unlock()
			if onErr != nil {
				onErr(absPath, err)
			}
		}
	})
}

// Reload reads, upgrades and validates the page at path and passes it to
// the LoadFunc.
func (w *PageWatcher) Reload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read page file: %w", err)
	}
	p, err := storage.DecodePage(data)
	if err != nil {
		return err
	}
	w.log.Debug("page file changed", "path", path, "components", len(p.Components))
	return w.onLoad(ctx, path, p)
}

func (w *PageWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
