// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citic/botNeumann-sub000/internal/api/version"
	"github.com/citic/botNeumann-sub000/internal/events"
	"github.com/citic/botNeumann-sub000/internal/mi"
	"github.com/citic/botNeumann-sub000/internal/session"
)

type stubDebugger struct {
	output *session.OutputBuffer
}

func (s *stubDebugger) Start(ctx context.Context) error { return nil }
func (s *stubDebugger) Stop(ctx context.Context) error { return nil }
func (s *stubDebugger) Status() session.Status {
	return session.Status{ID: "stub", State: session.StateReady}
}
func (s *stubDebugger) Send(ctx context.Context, text string, userData any) (*mi.Response, error) {
	return mi.ParseLine(`1^done`)
}
func (s *stubDebugger) Drain(n int) []*mi.Response { return nil }
func (s *stubDebugger) Output() *session.OutputBuffer { return s.output }
func (s *stubDebugger) WriteInferior(p []byte) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *events.MemoryEventBus) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{HistoryMaxEvents: 100, HistoryMaxAge: time.Hour})
	t.Cleanup(func() { bus.Close() })

	router := NewRouter(Dependencies{
		Debugger: &stubDebugger{output: session.NewOutputBuffer(10)},
		EventBus: bus,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, bus
}

func TestRouter_Routes(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/api/v1/session", "", http.StatusOK},
		{"POST", "/api/v1/session/start", "", http.StatusOK},
		{"POST", "/api/v1/session/stop", "", http.StatusOK},
		{"POST", "/api/v1/commands", `{"command":"-gdb-version"}`, http.StatusOK},
		{"GET", "/api/v1/responses", "", http.StatusOK},
		{"GET", "/api/v1/target", "", http.StatusOK},
		{"POST", "/api/v1/target/input", `{"data":"y\n"}`, http.StatusOK},
		{"GET", "/api/v1/events", "", http.StatusOK},
		{"GET", "/api/v1/commands", "", http.StatusMethodNotAllowed},
		{"GET", "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRouter_VersionHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/session")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, version.LatestVersion, resp.Header.Get(version.Header))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_EventWebSocket(t *testing.T) {
	srv, bus := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.EventSessionStarted}))
	first, err := bus.History(events.EventFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws?pattern=" + url.QueryEscape("gdb.*|session.*") + "&after_seq=0"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var replayed events.Event
	require.NoError(t, conn.ReadJSON(&replayed))
	assert.Equal(t, events.EventSessionStarted, replayed.Type)

	// The subscription is registered before replay, so this is delivered live.
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.EventInferiorOutput}))
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.EventGDBResult}))

	var live events.Event
	require.NoError(t, conn.ReadJSON(&live))
	assert.Equal(t, events.EventGDBResult, live.Type)
	assert.Greater(t, live.Seq, replayed.Seq)
}

func TestServer_Addr(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 7410}, Dependencies{})
	assert.Equal(t, "127.0.0.1:7410", s.Addr())
	assert.NotNil(t, s.Router())
}

func TestServer_ShutdownBeforeServe(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, Dependencies{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
