// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"time"
)

// State is the lifecycle state of a debugger session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateBusy
	StateTerminated
	StateExited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateTerminated:
		return "terminated"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Running reports whether a debugger process is alive in this state.
func (s State) Running() bool {
	return s == StateStarting || s == StateReady || s == StateBusy
}

// Status is a snapshot of a session.
type Status struct {
	ID         string    `json:"id"`
	State      State     `json:"state"`
	PID        int       `json:"pid,omitempty"`
	ExitCode   int       `json:"exit_code"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	StoppedAt  time.Time `json:"stopped_at,omitempty"`
	Pending    int       `json:"pending"`
	Queued     int       `json:"queued"`
	LastCausal int       `json:"last_causal"`
	NextSeq    int       `json:"next_seq"`
	TTY        string    `json:"tty,omitempty"`
	Error      string    `json:"error,omitempty"`
}
