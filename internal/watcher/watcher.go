// Package watcher watches the document folder and triggers a new-only
// ingestion run after a quiet period, so files dropped into the folder
// become searchable without manual reindexing.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger is invoked once per settled burst of file activity.
type Trigger func(dir string)

// Watcher debounces filesystem events under one root into ingestion
// triggers. Events on unsupported files and hidden directories are
// ignored.
type Watcher struct {
	fsw       *fsnotify.Watcher
	root      string
	debounce  time.Duration
	supported func(name string) bool
	trigger   Trigger
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
}

// New creates a watcher over root. supported filters by filename;
// trigger fires after debounce of quiet time following a relevant
// event.
func New(root string, debounce time.Duration, supported func(string) bool,
	trigger Trigger, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		fsw:       fsw,
		root:      abs,
		debounce:  debounce,
		supported: supported,
		trigger:   trigger,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.logger.Info("watching folder",
		slog.String("root", w.root),
		slog.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-timer.C:
			armed = false
			w.trigger(w.root)
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			armed = true
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// relevant filters events down to the ones that can change what should
// be indexed. New directories are added to the watch as a side effect.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod != 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || hiddenPath(rel) {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return true
		}
	}
	return w.supported(filepath.Base(event.Name))
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if rel != "." && hiddenPath(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	return w.fsw.Close()
}

func hiddenPath(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
