// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/citic/botNeumann-sub000/internal/session"
)

// CommandRequest is the body of POST /commands.
type CommandRequest struct {
	Command string `json:"command"`
	Tag     string `json:"tag,omitempty"`
}

// CommandHandler sends commands and drains parsed responses.
type CommandHandler struct {
	dbg Debugger
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(dbg Debugger) *CommandHandler {
	return &CommandHandler{dbg: dbg}
}

// Send writes one MI command and returns its result record. Records that
// arrived meanwhile stay queued for Responses.
func (h *CommandHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "command is required")
		return
	}
	if strings.ContainsAny(req.Command, "\r\n") {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "command must be a single line")
		return
	}

	var tag any
	if req.Tag != "" {
		tag = req.Tag
	}
	resp, err := h.dbg.Send(r.Context(), req.Command, tag)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session.NewResponseView(resp))
}

// Responses removes and returns queued responses, oldest first. limit
// bounds the count; zero or absent drains the queue.
func (h *CommandHandler) Responses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	resps := h.dbg.Drain(limit)
	views := make([]session.ResponseView, len(resps))
	for i, resp := range resps {
		views[i] = session.NewResponseView(resp)
	}
	WriteJSON(w, http.StatusOK, views)
}
