// file: internal/watcher/watcher.go
// version: 4.0.0
// guid: b2c3d4e5-f6a7-8901-bcde-f23456789012

// Package watcher re-runs imports when a local library tree changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/jdfalk/playlist-importer/internal/logging"
)

// DefaultDebounce is used when no debounce period is given.
const DefaultDebounce = 5 * time.Second

// Callback receives the watched root once changes have settled.
type Callback func(ctx context.Context, rootDir string)

// Watcher runs a callback after importable files or new directories
// appear under a root and the tree has been quiet for the debounce period.
type Watcher struct {
	root     string
	debounce time.Duration
	callback Callback
	logger   *logging.Logger
	ready    chan struct{}
}

// New creates a Watcher for root. A debounce of 0 selects DefaultDebounce.
func New(root string, debounce time.Duration, callback Callback, logger *logging.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		callback: callback,
		logger:   logger.With("watcher"),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the tree is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. The callback runs on the calling
// goroutine, so runs never overlap; changes made during a run schedule
// the next one.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	w.addTree(fsw, w.root)
	close(w.ready)

	var timer *time.Timer
	var settled <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(fsw, event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			settled = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("%v", err)

		case <-settled:
			settled = nil
			w.logger.Infof("changes settled, importing %s", w.root)
			if w.callback != nil {
				w.callback(ctx, w.root)
			}
		}
	}
}

// relevant reports whether event should trigger an import. New
// directories are added to the watch as a side effect.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(fsw, event.Name)
			return true
		}
	}

	if !importer.IsAcceptedExtension(event.Name) {
		return false
	}
	w.logger.Debugf("%s %s", event.Op, event.Name)
	return true
}

// addTree watches dir and every directory below it. Unreadable
// directories are skipped.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warnf("cannot watch %s: %v", path, err)
		}
		return nil
	})
}
