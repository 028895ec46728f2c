// Package watcher imports documents dropped into inbox directories. File events are
// debounced per path and imports run one at a time on a single worker.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/pipeline"
)

const defaultDebounce = 500 * time.Millisecond

// Importer receives files from the watcher. *pipeline.Importer implements it.
type Importer interface {
	ImportFile(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Result, error)
	ForgetFile(ctx context.Context, path string) error
}

// Watcher watches inbox directories and imports new or modified documents.
type Watcher struct {
	importer   Importer
	mode       editor.ApplyMode
	roots      []string
	extensions []string
	recursive  bool
	debounce   time.Duration

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	timers    map[string]*time.Timer
	queued    map[string]bool
	pending   []string // FIFO of queued paths, unbounded
	rootPaths map[string][]string // root -> watched dirs under it
	wake      chan struct{}
	done      chan struct{}
	started   bool
	stopOnce  sync.Once
	stats     models.WatchStats
	logger    *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the debounce interval from the config.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for the directories in cfg. Call Start to begin watching.
func New(importer Importer, cfg config.WatchConfig, opts ...Option) *Watcher {
	w := &Watcher{
		importer:   importer,
		mode:       editor.ApplyMode(cfg.Mode),
		roots:      absPaths(cfg.Directories),
		extensions: cfg.Extensions,
		recursive:  cfg.RecursiveOrDefault(),
		debounce:   cfg.Debounce(),
		timers:     make(map[string]*time.Timer),
		queued:     make(map[string]bool),
		rootPaths:  make(map[string][]string),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func absPaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, filepath.Clean(abs))
		}
	}
	return out
}

// Start adds the watches and starts the event loop and import worker. Missing root
// directories are created. Both goroutines stop when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
	}
	w.started = true
	w.logger.Info("watcher started",
		zap.Strings("directories", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
		zap.String("mode", string(w.mode)))
	go w.run(ctx, fsw)
	go w.work(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// work imports queued files one at a time.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.wake:
			for {
				path, ok := w.next()
				if !ok {
					break
				}
				if ctx.Err() != nil || w.stopped() {
					return
				}
				w.importFile(ctx, path)
			}
		}
	}
}

// next pops the oldest queued path.
func (w *Watcher) next() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return "", false
	}
	path := w.pending[0]
	w.pending[0] = ""
	w.pending = w.pending[1:]
	delete(w.queued, path)
	return path, true
}

func (w *Watcher) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	res, err := w.importer.ImportFile(ctx, path, pipeline.Options{Mode: w.mode})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastPath = path
	switch {
	case err != nil:
		w.stats.Failed++
		w.stats.LastError = err.Error()
		w.logger.Warn("watched file import failed", zap.String("path", path), zap.Error(err))
	case res != nil && res.Skipped:
		w.stats.Skipped++
	default:
		w.stats.Imported++
		w.stats.LastError = ""
		w.stats.LastImport = time.Now()
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) || ignoredName(filepath.Base(path)) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(path)
		if !matchExtension(path, w.extensions) {
			return
		}
		if err := w.importer.ForgetFile(ctx, path); err != nil {
			w.logger.Warn("forget removed file", zap.String("path", path), zap.Error(err))
			return
		}
		w.mu.Lock()
		w.stats.Removed++
		w.mu.Unlock()
	}
}

// handleNewDirectory watches a directory created or moved under a root and queues its files.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil || !w.recursive {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Debug("watch new directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	w.syncDirectory(dir)
}

// ignoredName reports office lock files and hidden files.
func ignoredName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || strings.HasSuffix(name, "~")
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule queues path once no event has arrived for it within the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(path)
	})
}

// enqueue adds path to the import queue once. It never blocks, so event handling
// and directory syncs keep going while the worker is busy.
func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	if w.queued[path] {
		w.mu.Unlock()
		return
	}
	w.queued[path] = true
	w.pending = append(w.pending, path)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

// AddDirectory adds a root directory and optionally queues the files already in it.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	for _, r := range w.roots {
		if r == abs {
			w.mu.Unlock()
			return nil
		}
	}
	if w.fsw != nil {
		if err := w.addRootLocked(abs); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.roots = append(w.roots, abs)
	started := w.started
	w.mu.Unlock()

	w.logger.Info("watch directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && started {
		go w.syncDirectory(abs)
	}
	return nil
}

// addRootLocked creates root if missing and watches it, and its subdirectories when recursive.
func (w *Watcher) addRootLocked(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	w.rootPaths[root] = paths
	return nil
}

// syncDirectory queues every matching file under root.
func (w *Watcher) syncDirectory(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (!w.recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !ignoredName(d.Name()) && matchExtension(path, w.extensions) {
			w.enqueue(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Pages already imported from it are kept.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.fsw != nil {
		for _, p := range w.rootPaths[abs] {
			_ = w.fsw.Remove(p)
		}
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	for path, t := range w.timers {
		if inDir(abs, path) {
			t.Stop()
			delete(w.timers, path)
		}
	}
	w.logger.Info("watch directory removed", zap.String("path", abs))
	return nil
}

// Directories returns the watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles queues the files already present in every root. Unchanged files
// are skipped by the importer.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stats returns a copy of the watcher counters.
func (w *Watcher) Stats() models.WatchStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.stats
	s.Pending = len(w.timers) + len(w.queued)
	return s
}

// Running reports whether Start has been called and Stop has not.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// Stop stops watching and releases the fsnotify handle. An import in progress finishes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.logger.Info("watcher stopped")
}
