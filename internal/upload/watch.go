package upload

import (
	"fmt"
	"path/filepath"
	"sync"

	"testhub/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports on-disk changes of one selected file. The parent directory
// is watched so editors that save by rename are still seen.
type Watcher struct {
	fsw     *fsnotify.Watcher
	path    string
	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWatcher starts watching path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		fsw:     fsw,
		path:    abs,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()

	logging.WatchDebug("watching %s", abs)
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Changes delivers the watched path after each change. Bursts are coalesced.
// The channel is closed when the watcher stops.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer close(w.changes)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			logging.WatchDebug("event %s on %s", ev.Op, ev.Name)
			select {
			case w.changes <- w.path:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WatchWarn("watcher error on %s: %v", w.path, err)
		}
	}
}
