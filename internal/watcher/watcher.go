// Package watcher follows the host's active file on disk and reports its new
// content when it changes outside the editor.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceInterval = 500 * time.Millisecond

// UpdateCallback receives the followed file's path and full content.
type UpdateCallback func(path, content string)

// Watcher follows at most one file at a time.
type Watcher struct {
	mu       sync.Mutex
	current  *fileWatcher
	callback UpdateCallback
	logger   *zap.SugaredLogger
}

type fileWatcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}

	mu          sync.Mutex
	stopped     bool
	lastContent string
}

// New creates a watcher that reports changes to callback.
func New(callback UpdateCallback, logger *zap.SugaredLogger) *Watcher {
	return &Watcher{
		callback: callback,
		logger:   logger,
	}
}

// Follow reports the current content of path and keeps reporting it after
// every change, replacing whichever file was followed before. The parent
// directory is watched so saves done by rename are seen too.
func (w *Watcher) Follow(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", abs, err)
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		fsW.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	fw := &fileWatcher{
		path:        abs,
		fsWatcher:   fsW,
		cancel:      make(chan struct{}),
		lastContent: string(content),
	}

	w.mu.Lock()
	prev := w.current
	w.current = fw
	w.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	go w.watchLoop(fw)

	w.logger.Debugw("following file", "path", abs)
	if w.callback != nil {
		w.callback(abs, string(content))
	}
	return nil
}

// Unfollow stops following the current file, if any.
func (w *Watcher) Unfollow() {
	w.mu.Lock()
	fw := w.current
	w.current = nil
	w.mu.Unlock()

	if fw != nil {
		fw.stop()
	}
}

// Shutdown releases all watch resources.
func (w *Watcher) Shutdown() {
	w.Unfollow()
}

// Following returns the followed path, or "".
func (w *Watcher) Following() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return ""
	}
	return w.current.path
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop(fw *fileWatcher) {
	var timer *time.Timer

	for {
		select {
		case <-fw.cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path || event.Op == fsnotify.Chmod {
				continue
			}

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				w.reload(fw)
			})

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("watcher error", "path", fw.path, "error", err)
		}
	}
}

// reload re-reads the file and reports it if the content changed. fw.mu is
// held through the callback so no report lands after stop returns; the
// callback must not call back into the Watcher.
func (w *Watcher) reload(fw *fileWatcher) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return
	}

	data, err := os.ReadFile(fw.path)
	if err != nil {
		// Mid-rename or deleted; the next event retries.
		w.logger.Debugw("reload skipped", "path", fw.path, "error", err)
		return
	}

	content := string(data)
	if content == fw.lastContent {
		return
	}
	fw.lastContent = content

	if w.callback != nil {
		w.callback(fw.path, content)
	}
}

func (fw *fileWatcher) stop() {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return
	}
	fw.stopped = true
	fw.mu.Unlock()

	close(fw.cancel)
	fw.fsWatcher.Close()
}
