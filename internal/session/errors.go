// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import "errors"

var (
	// ErrBusy is returned by Send while another command is in flight.
	ErrBusy = errors.New("command already in flight")

	// ErrTimeout is returned when the result of a command does not arrive
	// within the command timeout.
	ErrTimeout = errors.New("timed out waiting for result")

	// ErrExited is returned when the debugger process has gone away.
	ErrExited = errors.New("debugger exited")

	// ErrNotRunning is returned when no debugger process has been started.
	ErrNotRunning = errors.New("debugger not running")

	// ErrAlreadyRunning is returned by Start on a live session.
	ErrAlreadyRunning = errors.New("debugger already running")
)
