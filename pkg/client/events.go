// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// EventClient provides access to the event bus.
//
// Records parsed from the debugger are published as "gdb.<kind>" events;
// lifecycle changes as "session.*" and program activity as "inferior.*".
//
// Access this client through [Client.Events]:
//
//	events, err := client.Events.List(ctx, &client.ListOptions{Limit: 50})
type EventClient struct {
	c *Client
}

// ListOptions configures event listing.
type ListOptions struct {
	// Limit keeps only the newest Limit events.
	Limit int

	// Types filters to these event type patterns (e.g., "gdb.*").
	Types []string

	// Session filters to events from this session.
	Session string

	// AfterSeq returns only events with a larger sequence number.
	AfterSeq uint64

	// Since filters to events after this time.
	Since time.Time

	// Until filters to events before this time.
	Until time.Time
}

// List returns retained events, oldest first.
func (e *EventClient) List(ctx context.Context, opts *ListOptions) ([]Event, error) {
	path := "/api/v1/events"

	if opts != nil {
		params := url.Values{}
		if opts.Limit > 0 {
			params.Set("limit", fmt.Sprintf("%d", opts.Limit))
		}
		for _, t := range opts.Types {
			params.Add("type", t)
		}
		if opts.Session != "" {
			params.Set("session", opts.Session)
		}
		if opts.AfterSeq > 0 {
			params.Set("after_seq", strconv.FormatUint(opts.AfterSeq, 10))
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if !opts.Until.IsZero() {
			params.Set("until", opts.Until.Format(time.RFC3339))
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}

	data, err := e.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}

	return events, nil
}

// Watch streams events matching pattern over a WebSocket and calls fn for
// each one until ctx is done, fn returns an error, or the server closes the
// connection. With afterSeq > 0 the server first replays retained events
// newer than afterSeq.
func (e *EventClient) Watch(ctx context.Context, pattern string, afterSeq uint64, fn func(Event) error) error {
	params := url.Values{}
	if pattern != "" {
		params.Set("pattern", pattern)
	}
	if afterSeq > 0 {
		params.Set("after_seq", strconv.FormatUint(afterSeq, 10))
	}

	wsURL := "ws" + strings.TrimPrefix(e.c.baseURL, "http") + "/api/v1/events/ws"
	if len(params) > 0 {
		wsURL += "?" + params.Encode()
	}

	header := http.Header{}
	header.Set(VersionHeader, e.c.version)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}
