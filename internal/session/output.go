// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"time"
)

const defaultOutputBufferSize = 5000

// Output sources.
const (
	SourceTTY = "tty" // the inferior's pseudo-terminal
	SourceMI  = "mi"  // non-protocol lines on the debugger's stdout
)

// OutputLine is one line printed by the program being debugged.
type OutputLine struct {
	Line     string    `json:"line"`
	Sequence int64     `json:"seq"`
	Source   string    `json:"source"`
	Time     time.Time `json:"time"`
}

// OutputBuffer is a thread-safe ring buffer of inferior output with
// subscription support.
type OutputBuffer struct {
	mu       sync.RWMutex
	lines    []OutputLine
	capacity int
	size     int
	head     int // next write position
	sequence int64

	subMu       sync.RWMutex
	subscribers map[chan OutputLine]struct{}
}

// NewOutputBuffer creates a buffer holding up to capacity lines.
func NewOutputBuffer(capacity int) *OutputBuffer {
	if capacity <= 0 {
		capacity = defaultOutputBufferSize
	}
	return &OutputBuffer{
		lines:       make([]OutputLine, capacity),
		capacity:    capacity,
		subscribers: make(map[chan OutputLine]struct{}),
	}
}

// Write adds a line and notifies subscribers. It returns the stored line.
func (b *OutputBuffer) Write(source, line string) OutputLine {
	b.mu.Lock()
	b.sequence++
	ol := OutputLine{Line: line, Sequence: b.sequence, Source: source, Time: time.Now()}
	b.lines[b.head] = ol
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	b.mu.Unlock()

	b.subMu.RLock()
	for ch := range b.subscribers {
		select {
		case ch <- ol:
		default:
			// subscriber too slow
		}
	}
	b.subMu.RUnlock()

	return ol
}

// Lines returns the last n lines, oldest first.
func (b *OutputBuffer) Lines(n int) []OutputLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || b.size == 0 {
		return []OutputLine{}
	}
	if n > b.size {
		n = b.size
	}

	result := make([]OutputLine, n)
	start := (b.head - n + b.capacity) % b.capacity
	for i := 0; i < n; i++ {
		result[i] = b.lines[(start+i)%b.capacity]
	}
	return result
}

// Since returns the retained lines with a sequence number above seq.
func (b *OutputBuffer) Since(seq int64) []OutputLine {
	all := b.Lines(b.Size())
	for i, l := range all {
		if l.Sequence > seq {
			return all[i:]
		}
	}
	return []OutputLine{}
}

// Subscribe returns a channel that receives new lines. The channel has a
// buffer of 100 lines; lines are dropped for slow subscribers.
func (b *OutputBuffer) Subscribe() chan OutputLine {
	ch := make(chan OutputLine, 100)
	b.subMu.Lock()
	b.subscribers[ch] = struct{}{}
	b.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *OutputBuffer) Unsubscribe(ch chan OutputLine) {
	b.subMu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.subMu.Unlock()
}

// Sequence returns the sequence number of the newest line.
func (b *OutputBuffer) Sequence() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sequence
}

// Size returns the number of lines held.
func (b *OutputBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear drops all lines. Sequence numbers keep increasing.
func (b *OutputBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = 0
	b.head = 0
	for i := range b.lines {
		b.lines[i] = OutputLine{}
	}
}
