// SPDX-License-Identifier: MIT
package filter

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"shaderfx/internal/log"
)

// Watcher calls onChange whenever the watched file is written, created or
// renamed over. The parent directory is watched so editors that save by
// replacing the file are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher starts watching path.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{watcher: fw, path: abs, onChange: onChange}
	w.wg.Add(1)
	go w.loop()
	log.Infof("Watcher: watching %s", abs)
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debugf("Watcher: %s", event)
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Watcher: %v", err)
		}
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
