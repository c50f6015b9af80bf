package build

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs an Executor's Build whenever a project source file
// changes, debouncing bursts of events into a single rebuild — grounded
// on the teacher's `internal/indexing.FileWatcher`/`eventDebouncer`
// (spec §4.9's watch-mode requirement: "a build triggered automatically
// on source change, coalescing rapid successive edits into one run").
type Watcher struct {
	fsw      *fsnotify.Watcher
	exec     *Executor
	debounce time.Duration

	onRebuildStart func()
	onRebuildDone  func(err error)

	mu      sync.Mutex
	pending bool
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher that rebuilds via exec, coalescing
// events within debounce into a single rebuild (matching the
// reference's WatchDebounceMs).
func NewWatcher(exec *Executor, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsw:      fsw,
		exec:     exec,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetCallbacks registers hooks fired around each debounced rebuild.
func (w *Watcher) SetCallbacks(onStart func(), onDone func(err error)) {
	w.onRebuildStart = onStart
	w.onRebuildDone = onDone
}

// Start adds recursive watches under root and begins processing
// events; it returns once watches are established, running the event
// loop and debounce timer in background goroutines.
func (w *Watcher) Start(root string) error {
	if err := w.addWatches(root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop tears down the watcher and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("build: watch: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

// shouldIgnoreDir skips the build's own staging/output folders and VCS
// metadata, so the watcher never reacts to files it (or git) just wrote.
func shouldIgnoreDir(path string) bool {
	base := filepath.Base(path)
	switch base {
	case ".git", ".hemttout", "tmp":
		return true
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
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
			log.Printf("build: watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !shouldIgnoreDir(event.Name) {
			if err := w.fsw.Add(event.Name); err != nil {
				log.Printf("build: watch: failed to add watch for new directory %s: %v", event.Name, err)
			}
		}
		return
	}
	w.scheduleRebuild()
}

func (w *Watcher) scheduleRebuild() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.rebuild)
}

func (w *Watcher) rebuild() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	if w.onRebuildStart != nil {
		w.onRebuildStart()
	}
	err := w.exec.Build()
	if w.onRebuildDone != nil {
		w.onRebuildDone(err)
	}
}
