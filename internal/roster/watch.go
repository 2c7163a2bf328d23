package roster

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"classlink/util"
)

// Watcher reloads a Roster whenever its backing file changes.
type Watcher struct {
	roster  *Roster
	path    string
	watcher *fsnotify.Watcher
	logger  *util.Logger
	done    chan struct{}

	// OnReload, when set before Start, is called after each successful
	// reload with the new roster size.
	OnReload func(n int)
}

// NewWatcher loads path into r once and prepares to watch it.  The
// parent directory is watched rather than the file itself so that
// editors which save via rename keep triggering reloads.
func NewWatcher(r *Roster, path string, logger *util.Logger) (*Watcher, error) {
	ids, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	r.Replace(ids)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("roster watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("roster watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("roster watcher: %w", err)
	}

	return &Watcher{
		roster:  r,
		path:    abs,
		watcher: fw,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close stops watching.  It is safe to call more than once.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("roster watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	ids, err := LoadFile(w.path)
	if err != nil {
		// Keep the previous roster; a later event will retry.
		w.logger.Warn("roster reload failed: %v", err)
		return
	}
	w.roster.Replace(ids)
	w.logger.Info("roster reloaded: %d identifiers", w.roster.Len())
	if w.OnReload != nil {
		w.OnReload(w.roster.Len())
	}
}
