// ABOUTME: Configuration file watcher
// ABOUTME: Signals when reel.yml is written, replaced or recreated
// Package confwatcher contains a configuration watcher.
package confwatcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// events closer than this are reported once
const debounce = 100 * time.Millisecond

// ConfWatcher is a configuration file watcher.
type ConfWatcher struct {
	FilePath string

	inner   *fsnotify.Watcher
	absPath string

	// out
	signal chan struct{}
	done   chan struct{}
}

// Initialize initializes a ConfWatcher.
func (w *ConfWatcher) Initialize() error {
	absPath, err := filepath.Abs(w.FilePath)
	if err != nil {
		return err
	}

	_, err = os.Stat(absPath)
	if err != nil {
		return err
	}

	w.inner, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// editors replace files instead of writing them, so the directory is
	// watched
	err = w.inner.Add(filepath.Dir(absPath))
	if err != nil {
		w.inner.Close() //nolint:errcheck
		return err
	}

	w.absPath = absPath
	w.signal = make(chan struct{})
	w.done = make(chan struct{})

	go w.run()

	return nil
}

// Close closes a ConfWatcher.
func (w *ConfWatcher) Close() {
	w.inner.Close() //nolint:errcheck
	<-w.done
}

func (w *ConfWatcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.absPath {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil

			select {
			case w.signal <- struct{}{}:
			case _, ok := <-w.inner.Errors:
				if !ok {
					return
				}
			}

		case _, ok := <-w.inner.Errors:
			if !ok {
				return
			}
		}
	}
}

// Watch returns a channel that is signaled when the file has changed.
func (w *ConfWatcher) Watch() <-chan struct{} {
	return w.signal
}
