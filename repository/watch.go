package repository

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a repository file into the engine whenever the file is
// rewritten out-of-band. It pairs with cached-metadata servers whose
// repository files are regenerated by an external process.
type Watcher struct {
	cache  *Cache
	path   string
	repoID string
	fw     *fsnotify.Watcher

	mu      sync.Mutex
	reloads int
	lastErr error

	done chan struct{}
}

// Watch performs an initial Load of path into repoID and then keeps the
// repository current as the file changes. Close stops the watcher.
func (c *Cache) Watch(path, repoID string) (*Watcher, error) {
	if err := c.Load(path, repoID); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("repository: watch %s: %w", path, err)
	}
	// Watch the directory: editors and atomic writers replace the file
	// rather than writing it in place.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("repository: watch %s: %w", path, err)
	}
	w := &Watcher{
		cache:  c,
		path:   filepath.Clean(path),
		repoID: repoID,
		fw:     fw,
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			err := w.cache.Load(w.path, w.repoID)
			w.mu.Lock()
			w.lastErr = err
			if err == nil {
				w.reloads++
			}
			w.mu.Unlock()
			if err != nil {
				w.cache.log.Warn("repository reload failed", "path", w.path, "repo", w.repoID, "err", err)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.cache.log.Warn("repository watcher error", "path", w.path, "err", err)
		}
	}
}

// Reloads returns how many reloads have completed successfully since Watch.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// LastErr returns the outcome of the most recent reload attempt.
func (w *Watcher) LastErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Close stops watching. The repository keeps its last loaded contents.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
