// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const defaultTargetLines = 100

// TargetHandler serves the output of the program being debugged.
type TargetHandler struct {
	dbg Debugger
}

// NewTargetHandler creates a new target handler.
func NewTargetHandler(dbg Debugger) *TargetHandler {
	return &TargetHandler{dbg: dbg}
}

// Output returns the last lines of program output.
func (h *TargetHandler) Output(w http.ResponseWriter, r *http.Request) {
	lines := defaultTargetLines
	if s := r.URL.Query().Get("lines"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			lines = n
		}
	}

	buf := h.dbg.Output()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lines": buf.Lines(lines),
		"seq":   buf.Sequence(),
	})
}

// Input writes to the program's terminal.
func (h *TargetHandler) Input(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data string `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.dbg.WriteInferior([]byte(req.Data)); err != nil {
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"written": len(req.Data)})
}

// Stream sends program output as Server-Sent Events.
func (h *TargetHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, "streaming not supported")
		return
	}

	buf := h.dbg.Output()
	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, "event: connected\ndata: {\"seq\":%d}\n\n", buf.Sequence())
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case line, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(line)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
