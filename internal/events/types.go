// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus that fans debugger
// records and session lifecycle changes out to API subscribers.
package events

import (
	"context"
	"time"
)

// Event is an immutable record published on the bus.
type Event struct {
	ID        string                 `json:"id"`
	Seq       uint64                 `json:"seq"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Session   string                 `json:"session"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter selects events from history.
type EventFilter struct {
	Types    []string  // patterns, see PatternMatcher
	Session  string    // exact session id
	AfterSeq uint64    // only events with a larger Seq
	Since    time.Time // events at or after this time
	Until    time.Time // events at or before this time
	Limit    int       // keep the newest Limit events
}

// EventBus is the pub/sub surface used by the session and the API.
type EventBus interface {
	// Publish stamps the event and delivers it to matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler called on the publisher's goroutine.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers a handler fed from a buffered channel.
	// Events are dropped when the buffer is full.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	Unsubscribe(id SubscriptionID) error

	// History returns retained events matching filter, oldest first.
	History(filter EventFilter) ([]Event, error)

	// SetDefaultSession sets the session id stamped on events that have none.
	SetDefaultSession(session string)

	Close() error
}

// Event types.
const (
	// One per parsed record; the suffix is the record kind.
	EventGDBExec    = "gdb.exec"
	EventGDBStatus  = "gdb.status"
	EventGDBNotify  = "gdb.notify"
	EventGDBConsole = "gdb.console"
	EventGDBTarget  = "gdb.target"
	EventGDBLog     = "gdb.log"
	EventGDBResult  = "gdb.result"
	EventGDBPrompt  = "gdb.prompt"

	// Session lifecycle
	EventSessionStarted = "session.started"
	EventSessionStopped = "session.stopped"
	EventSessionExited  = "session.exited"

	// Debuggee
	EventInferiorChanged = "inferior.changed"
	EventInferiorOutput  = "inferior.output"
)

// RecordEventType returns the event type for a record kind name such as
// "exec" or "result".
func RecordEventType(kind string) string {
	return "gdb." + kind
}
