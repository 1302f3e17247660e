package deck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// Watcher re-imports a deck file whenever it is written. The containing
// directory is watched so that editors which replace the file on save are
// picked up too.
type Watcher struct {
	path    string
	layout  Layout
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the deck file at path.
func NewWatcher(path string, layout Layout) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	return &Watcher{path: abs, layout: layout, watcher: w}, nil
}

// Run blocks until ctx is done, calling onChange with the freshly imported
// deck after each burst of writes.
func (w *Watcher) Run(ctx context.Context, onChange func(ImportResult)) error {
	log.Debug("watching deck", "path", w.path)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err() //nolint:wrapcheck
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("deck watcher error", "error", err)
		case <-timerCh:
			timerCh = nil
			res, err := w.reload()
			if err != nil {
				log.Warn("unable to reload deck", "path", w.path, "error", err)
				continue
			}
			onChange(res)
		}
	}
}

func (w *Watcher) reload() (ImportResult, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return ImportCSV(f, w.layout)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close() //nolint:wrapcheck
}
