// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"
	"time"
)

const (
	defaultHistoryMaxEvents = 10000
	defaultHistoryMaxAge    = time.Hour
)

// EventHistoryConfig configures event retention.
type EventHistoryConfig struct {
	MaxEvents int
	MaxAge    time.Duration
}

// EventHistory retains published events in publish order.
type EventHistory struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	maxAge    time.Duration
	matcher   *PatternMatcher
}

// NewEventHistory creates an empty history. Zero limits select the defaults.
func NewEventHistory(cfg EventHistoryConfig) *EventHistory {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = defaultHistoryMaxEvents
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultHistoryMaxAge
	}
	return &EventHistory{
		maxEvents: cfg.MaxEvents,
		maxAge:    cfg.MaxAge,
		matcher:   NewPatternMatcher(),
	}
}

// Add appends an event, evicting the oldest beyond MaxEvents.
func (h *EventHistory) Add(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, event)
	if over := len(h.events) - h.maxEvents; over > 0 {
		h.events = append(h.events[:0:0], h.events[over:]...)
	}
}

// Len returns the number of retained events.
func (h *EventHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Query returns the events matching filter, oldest first. Events are kept in
// publish order so no sorting is needed.
func (h *EventHistory) Query(filter EventFilter) ([]Event, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Event, 0)
	for _, event := range h.events {
		if h.matches(event, filter) {
			result = append(result, event)
		}
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}
	return result, nil
}

func (h *EventHistory) matches(event Event, filter EventFilter) bool {
	if len(filter.Types) > 0 {
		matched := false
		for _, pattern := range filter.Types {
			if h.matcher.Match(event.Type, pattern) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if filter.Session != "" && event.Session != filter.Session {
		return false
	}
	if filter.AfterSeq > 0 && event.Seq <= filter.AfterSeq {
		return false
	}
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && event.Timestamp.After(filter.Until) {
		return false
	}
	return true
}

// Prune drops events older than MaxAge.
func (h *EventHistory) Prune() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-h.maxAge)
	i := 0
	for i < len(h.events) && !h.events[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		h.events = append(h.events[:0:0], h.events[i:]...)
	}
}

// Close releases the retained events.
func (h *EventHistory) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
