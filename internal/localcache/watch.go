package localcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// Watcher records every path the mirror tool writes, renames, or
// removes under the local-cache root, watching new subdirectories as
// they appear; WasInvalidated reports and clears that flag for a path.
// Reader does not consult it.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       *logging.Logger

	mu    sync.Mutex
	stale map[string]struct{}
}

func NewWatcher(root string, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating local-cache watcher: %w", err)
	}

	w := &Watcher{fsWatcher: fsWatcher, log: log, stale: make(map[string]struct{})}

	cacheRoot := filepath.Join(root, "cache")
	if err := w.addRecursive(cacheRoot); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks, processing fsnotify events until the watcher is closed.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("localcache", "watcher error", logging.F("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsWatcher.Add(event.Name); err != nil {
				w.log.Warn("localcache", "failed to watch new directory", logging.F("path", event.Name))
			}
			return
		}
	}

	w.mu.Lock()
	w.stale[event.Name] = struct{}{}
	w.mu.Unlock()
}

// WasInvalidated reports (and clears) whether path changed since the
// last check — callers use this to bypass an in-process read cache.
func (w *Watcher) WasInvalidated(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, changed := w.stale[path]
	delete(w.stale, path)
	return changed
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
