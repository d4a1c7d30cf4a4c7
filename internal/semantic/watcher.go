package semantic

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matsen/qarag/internal/logger"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Store whenever the index artifact is replaced.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	// OnReload is called after every reload attempt; nil err means success.
	OnReload func(err error)
}

// NewWatcher watches the directory containing path. The directory is
// watched rather than the file so atomic renames are seen.
func NewWatcher(store *Store, path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("resolving index path: %w", err)
	}

	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		store:    store,
		path:     abs,
		debounce: DefaultDebounce,
		watcher:  w,
	}, nil
}

// SetDebounce overrides the reload delay.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
			mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("index watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	err := w.store.LoadFile(w.path)
	if err != nil {
		logger.Warn("reloading index %s: %v", w.path, err)
	} else {
		logger.Info("reloaded index %s (%d entries)", w.path, w.store.Current().Len())
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
