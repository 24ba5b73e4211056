// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/citic/botNeumann-sub000/internal/mi"
	"github.com/citic/botNeumann-sub000/internal/session"
)

// Debugger is the part of session.Session the handlers use.
type Debugger interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() session.Status
	Send(ctx context.Context, text string, userData any) (*mi.Response, error)
	Drain(n int) []*mi.Response
	Output() *session.OutputBuffer
	WriteInferior(p []byte) error
}

// SessionHandler handles debugger lifecycle requests.
type SessionHandler struct {
	dbg Debugger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(dbg Debugger) *SessionHandler {
	return &SessionHandler{dbg: dbg}
}

// Get returns the session status.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.dbg.Status())
}

// Start spawns the debugger.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	// Background context: the debugger outlives the request.
	if err := h.dbg.Start(context.Background()); err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.dbg.Status())
}

// Stop shuts the debugger down.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.dbg.Stop(context.Background()); err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.dbg.Status())
}

// writeSessionError maps session errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		WriteError(w, http.StatusConflict, ErrBusy, err.Error())
	case errors.Is(err, session.ErrAlreadyRunning):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
	case errors.Is(err, session.ErrNotRunning):
		WriteError(w, http.StatusConflict, ErrNotRunning, err.Error())
	case errors.Is(err, session.ErrExited):
		WriteError(w, http.StatusConflict, ErrExited, err.Error())
	case errors.Is(err, session.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, ErrTimeout, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrDebuggerError, err.Error())
	}
}
