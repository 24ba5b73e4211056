// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher notices when the program under debug is rebuilt.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/citic/botNeumann-sub000/internal/events"
)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher is closed")

// DefaultCooldown suppresses change events that follow a published one too
// closely, such as the second write of a linker.
const DefaultCooldown = time.Second

// ProgramWatcher publishes inferior.changed when a watched program file is
// written or replaced.
//
// Linkers and build tools often replace the binary with a rename, which
// drops a watch placed on the file itself. The watcher therefore watches
// the containing directory and filters events by name.
type ProgramWatcher struct {
	mu        sync.RWMutex
	bus       events.EventBus
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	cooldown  time.Duration
	programs  map[string]struct{} // absolute program paths
	dirs      map[string]int      // directory -> number of programs in it
	lastFired map[string]time.Time
	closed    bool
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewProgramWatcher creates a watcher that publishes on bus.
func NewProgramWatcher(bus events.EventBus, debounce time.Duration) (*ProgramWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &ProgramWatcher{
		bus:       bus,
		fs:        fs,
		debouncer: NewDebouncer(debounce),
		cooldown:  DefaultCooldown,
		programs:  make(map[string]struct{}),
		dirs:      make(map[string]int),
		lastFired: make(map[string]time.Time),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// SetCooldown changes the minimum gap between two change events for the
// same program. Zero disables it.
func (w *ProgramWatcher) SetCooldown(d time.Duration) {
	w.mu.Lock()
	w.cooldown = d
	w.mu.Unlock()
}

// Watch starts watching the program at path. The file need not exist yet,
// but its directory must.
func (w *ProgramWatcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, ok := w.programs[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.programs[abs] = struct{}{}
	log.Printf("[watcher] watching %s", abs)
	return nil
}

// Unwatch stops watching the program at path.
func (w *ProgramWatcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.programs[abs]; !ok {
		return fmt.Errorf("%s is not being watched", abs)
	}
	delete(w.programs, abs)
	delete(w.lastFired, abs)
	w.debouncer.Cancel(abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if !w.closed {
			w.fs.Remove(dir)
		}
	}
	return nil
}

// Watching returns the watched program paths.
func (w *ProgramWatcher) Watching() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.programs))
	for p := range w.programs {
		out = append(out, p)
	}
	return out
}

// Close stops the watcher. Pending change events are dropped.
func (w *ProgramWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *ProgramWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] %v", err)
		}
	}
}

func (w *ProgramWatcher) handleEvent(ev fsnotify.Event) {
	// Chmod fires whenever the program is executed; reacting to it would
	// reload symbols on every run.
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}

	w.mu.RLock()
	_, watched := w.programs[ev.Name]
	w.mu.RUnlock()
	if !watched {
		return
	}

	path := ev.Name
	w.debouncer.Debounce(path, func() { w.fire(path) })
}

func (w *ProgramWatcher) fire(path string) {
	// A rename away leaves nothing to load until the new file lands.
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if last, ok := w.lastFired[path]; ok && w.cooldown > 0 && time.Since(last) < w.cooldown {
		w.mu.Unlock()
		return
	}
	w.lastFired[path] = time.Now()
	w.mu.Unlock()

	log.Printf("[watcher] %s changed", path)
	if w.bus == nil {
		return
	}
	w.bus.Publish(context.Background(), events.Event{
		Type: events.EventInferiorChanged,
		Payload: map[string]interface{}{
			"path":     path,
			"size":     info.Size(),
			"mod_time": info.ModTime().Format(time.RFC3339Nano),
		},
	})
}
