// Package watcher maps filesystem changes under the documents root to
// workspace invalidations.
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

	"github.com/granskad/hamta/internal/extract"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches the documents root recursively. Each workspace is a
// directory directly under the root; any change to a supported document
// inside it fires onInvalidate(workspaceID) after a per-workspace debounce,
// so a burst of writes collapses into one invalidation.
type Watcher struct {
	root         string
	onInvalidate func(workspaceID string)
	debounce     time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the invalidation debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over root. onInvalidate is called once per settled
// burst of changes in a workspace.
func New(root string, onInvalidate func(workspaceID string), logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		root:         filepath.Clean(root),
		onInvalidate: onInvalidate,
		debounce:     defaultDebounce,
		logger:       logger,
		pending:      make(map[string]*time.Timer),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	if err := w.addTreeLocked(w.root); err != nil {
		_ = fsw.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	w.logger.Info("watching documents root", zap.String("root", w.root))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	workspace, ok := w.workspaceFor(path)
	if !ok {
		return
	}

	if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// A new subtree starts watched and counts as a content change.
			w.mu.Lock()
			if w.watcher != nil {
				_ = w.addTreeLocked(path)
			}
			w.mu.Unlock()
			w.schedule(workspace)
			return
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !extract.Supported(path) {
		return
	}
	w.logger.Debug("document changed",
		zap.String("op", ev.Op.String()),
		zap.String("path", path),
		zap.String("workspace", workspace),
	)
	w.schedule(workspace)
}

// workspaceFor resolves the workspace a path belongs to: the first path
// element under the documents root. Paths at or outside the root have none.
func (w *Watcher) workspaceFor(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.SplitN(rel, string(filepath.Separator), 2)
	if len(parts) < 2 {
		// Direct child of the root: a workspace directory itself.
		return parts[0], true
	}
	return parts[0], true
}

// schedule arms (or re-arms) the debounce timer for a workspace.
func (w *Watcher) schedule(workspace string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[workspace]; ok {
		t.Stop()
	}
	w.pending[workspace] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, workspace)
		w.mu.Unlock()
		if w.onInvalidate != nil {
			w.onInvalidate(workspace)
		}
	})
}

// addTreeLocked adds root and every directory below it to the fsnotify
// watcher, creating root if missing. Caller holds w.mu.
func (w *Watcher) addTreeLocked(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Debug("failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

// Stop stops watching and cancels pending invalidations.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for workspace, t := range w.pending {
		t.Stop()
		delete(w.pending, workspace)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
