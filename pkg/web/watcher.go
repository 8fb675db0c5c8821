package web

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the results store when its file changes on disk and
// notifies connected clients through the hub.
type Watcher struct {
	store  *Store
	hub    *Hub
	buffer *Buffer

	// debounce window for editors that write in multiple syscalls
	settle time.Duration
}

// NewWatcher creates a watcher for the store's results file.
func NewWatcher(store *Store, hub *Hub, buffer *Buffer) *Watcher {
	return &Watcher{store: store, hub: hub, buffer: buffer, settle: 50 * time.Millisecond}
}

// Run watches the results file until the context is cancelled.
// the parent directory is watched rather than the file itself because
// most editors replace files via rename, which drops a file-level watch.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(w.store.Path())
	var timer *time.Timer
	reloadCh := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// restart the settle timer on every burst event
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.settle, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] file watcher: %v", err)

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		}
	}
}

// reload refreshes the store and broadcasts the new state.
func (w *Watcher) reload() {
	if err := w.store.Reload(); err != nil {
		log.Printf("[WARN] reload results: %v", err)
		return
	}

	e := NewReloadEvent()
	w.buffer.Add(e)
	w.hub.Broadcast(e)

	for _, m := range w.store.Snapshot().Models {
		me := NewModelEvent(m.Name, m.Status)
		w.buffer.Add(me)
		w.hub.Broadcast(me)
	}
}
