// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/citic/botNeumann-sub000/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsBuffer     = 256
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// EventHandler handles event-related API requests.
type EventHandler struct {
	bus events.EventBus
}

// NewEventHandler creates a new event handler.
func NewEventHandler(bus events.EventBus) *EventHandler {
	return &EventHandler{bus: bus}
}

// History returns retained events matching the query.
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	eventList, err := h.bus.History(filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, eventList)
}

func parseEventFilter(r *http.Request) (events.EventFilter, error) {
	query := r.URL.Query()
	filter := events.EventFilter{
		Types:   query["type"],
		Session: query.Get("session"),
	}

	if s := query.Get("after_seq"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return filter, errBadParam("after_seq")
		}
		filter.AfterSeq = n
	}
	if s := query.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if s := query.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, errBadParam("since")
		}
		filter.Since = t
	}
	if s := query.Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, errBadParam("until")
		}
		filter.Until = t
	}
	return filter, nil
}

type errBadParam string

func (e errBadParam) Error() string { return "invalid " + string(e) }

// WebSocket streams live events. The pattern query parameter selects event
// types ("*" by default). With after_seq, retained events newer than that
// sequence are replayed first.
func (h *EventHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	var replayAfter uint64
	replay := false
	if s := r.URL.Query().Get("after_seq"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid after_seq")
			return
		}
		replayAfter, replay = n, true
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	eventCh := make(chan events.Event, wsBuffer)
	done := make(chan struct{})

	subID, err := h.bus.SubscribeAsync(pattern, func(_ context.Context, event events.Event) error {
		select {
		case eventCh <- event:
		case <-done:
		default:
			// client too slow
		}
		return nil
	}, wsBuffer)
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer h.bus.Unsubscribe(subID)

	// Subscribed before reading history, so nothing falls in the gap; the
	// Seq check drops the overlap.
	var lastSeq uint64
	if replay {
		past, err := h.bus.History(events.EventFilter{Types: []string{pattern}, AfterSeq: replayAfter})
		if err == nil {
			for _, ev := range past {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
				lastSeq = ev.Seq
			}
		}
	}

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-eventCh:
			if event.Seq <= lastSeq {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
