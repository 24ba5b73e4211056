// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"sync"
	"time"
)

const defaultDebounceDuration = 100 * time.Millisecond

// Debouncer coalesces bursts of calls per key into one call after a quiet
// period.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	pending  map[string]*pendingCall
}

type pendingCall struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer. Non-positive durations use 100ms.
func NewDebouncer(duration time.Duration) *Debouncer {
	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	return &Debouncer{
		duration: duration,
		pending:  make(map[string]*pendingCall),
	}
}

// Debounce schedules fn for key. A later call with the same key before the
// quiet period ends replaces fn and restarts the period.
func (d *Debouncer) Debounce(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if !ok {
		p = &pendingCall{}
		d.pending[key] = p
	} else {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		cur, ok := d.pending[key]
		// A newer Debounce or a Cancel won the race with this timer.
		if !ok || cur.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending call for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether a call is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop drops every pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// SetDuration changes the quiet period for calls scheduled from now on.
func (d *Debouncer) SetDuration(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	d.duration = duration
}
