// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"encoding/json"
	"time"
)

// Status is a snapshot of the debugger session.
type Status struct {
	// ID is the session identifier. It changes on every start.
	ID string `json:"id"`

	// State is one of "idle", "starting", "ready", "busy", "terminated"
	// or "exited".
	State string `json:"state"`

	// PID is the debugger's process ID while it runs.
	PID int `json:"pid,omitempty"`

	// ExitCode is the debugger's exit code after it exits.
	ExitCode int `json:"exit_code"`

	StartedAt time.Time `json:"started_at,omitempty"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`

	// Pending is the number of commands still awaiting a result record.
	Pending int `json:"pending"`

	// Queued is the number of parsed records not yet drained.
	Queued int `json:"queued"`

	// LastCausal is the causal number of the most recent result record.
	LastCausal int `json:"last_causal"`

	// NextSeq is the number the next command will carry.
	NextSeq int `json:"next_seq"`

	// TTY is the terminal device given to the program, if any.
	TTY string `json:"tty,omitempty"`

	// Error describes the last failure, if any.
	Error string `json:"error,omitempty"`
}

// Running reports whether a debugger process is alive.
func (s *Status) Running() bool {
	switch s.State {
	case "starting", "ready", "busy":
		return true
	}
	return false
}

// Response is one parsed MI record.
type Response struct {
	// Kind is the record kind: "result", "exec", "status", "notify",
	// "console", "target", "log" or "prompt".
	Kind string `json:"kind"`

	// Class is the result class ("done", "running", "connected", "error",
	// "exit") or the async reason (e.g. "stopped").
	Class string `json:"class,omitempty"`

	// Causal is the number of the command that caused the record.
	Causal *int `json:"causal,omitempty"`

	// Tag is the caller's tag for the command that caused the record.
	Tag string `json:"tag,omitempty"`

	// Text is the decoded text of a stream record.
	Text string `json:"text,omitempty"`

	// Items is the record's name=value payload as JSON.
	Items json.RawMessage `json:"items"`

	// Raw is the debugger output line the record was parsed from.
	Raw string `json:"raw,omitempty"`
}

// IsError reports whether the record is an ^error result.
func (r *Response) IsError() bool {
	return r.Kind == "result" && r.Class == "error"
}

// Message returns the msg item of an ^error result.
func (r *Response) Message() string {
	var items struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return ""
	}
	return items.Msg
}

// OutputLine is one line written by the debugged program.
type OutputLine struct {
	Line     string    `json:"line"`
	Sequence int64     `json:"seq"`
	Source   string    `json:"source"`
	Time     time.Time `json:"time"`
}

// TargetOutput is the tail of the program's output.
type TargetOutput struct {
	Lines    []OutputLine `json:"lines"`
	Sequence int64        `json:"seq"`
}

// Event is a record from the event bus.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Seq increases by one for each published event.
	Seq uint64 `json:"seq"`

	// Type identifies the kind of event (e.g., "gdb.exec", "session.exited").
	Type string `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Session is the debugger session the event belongs to.
	Session string `json:"session"`

	// Payload contains event-specific data.
	Payload map[string]interface{} `json:"payload"`
}
