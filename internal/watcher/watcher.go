// Package watcher detects changes to the corpus source file so the
// index can be rebuilt while the engine keeps serving queries.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lexrag/lexrag/internal/errors"
)

// DefaultDebounceWindow coalesces rapid write events. Editors often
// produce several events per save (write, chmod, rename) and an index
// rebuild per event would thrash.
const DefaultDebounceWindow = 500 * time.Millisecond

// Watcher watches a single corpus file and emits one change
// notification per quiet period.
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	changes  chan struct{}
	errs     chan error

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// New creates a watcher for the given corpus file. A debounce of 0 or
// less uses DefaultDebounceWindow.
func New(path string, debounce time.Duration) (*Watcher, error) {
	if path == "" {
		return nil, errors.Config("watcher requires a source path")
	}
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "failed to create file watcher", err)
	}

	// Watch the directory, not the file: editors that save via
	// rename replace the inode and a file-level watch would go stale.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, errors.New(errors.ErrCodeInternal, "failed to watch source directory", err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		fsw:      fsw,
		changes:  make(chan struct{}, 1),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}, nil
}

// Changes returns a channel receiving one notification per debounced
// change of the watched file.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors returns non-fatal watcher errors. The watcher keeps running
// after an error.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start runs the watch loop until the context is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			slog.Debug("source file event", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.changes <- struct{}{}:
			default:
				// A notification is already pending.
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// Stop stops the watcher and releases resources. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fsw.Close()
}
