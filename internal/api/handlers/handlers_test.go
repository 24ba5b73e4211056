// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citic/botNeumann-sub000/internal/events"
	"github.com/citic/botNeumann-sub000/internal/mi"
	"github.com/citic/botNeumann-sub000/internal/session"
)

// Mock implementations

type mockDebugger struct {
	state    session.State
	sendErr  error
	startErr error
	queue    []*mi.Response
	output   *session.OutputBuffer
	sent     []string
	tags     []any
	input    []byte
}

func newMockDebugger() *mockDebugger {
	return &mockDebugger{
		state:  session.StateReady,
		output: session.NewOutputBuffer(10),
	}
}

func (m *mockDebugger) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	if m.state.Running() {
		return session.ErrAlreadyRunning
	}
	m.state = session.StateReady
	return nil
}

func (m *mockDebugger) Stop(ctx context.Context) error {
	m.state = session.StateTerminated
	return nil
}

func (m *mockDebugger) Status() session.Status {
	return session.Status{ID: "sess-1", State: m.state, Queued: len(m.queue)}
}

func (m *mockDebugger) Send(ctx context.Context, text string, userData any) (*mi.Response, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, text)
	m.tags = append(m.tags, userData)
	raw := fmt.Sprintf(`%d^done,value="42"`, len(m.sent))
	if strings.HasPrefix(text, "-bogus") {
		raw = fmt.Sprintf(`%d^error,msg="Undefined MI command: bogus"`, len(m.sent))
	}
	resp, err := mi.ParseLine(raw)
	if err != nil {
		return nil, err
	}
	resp.UserData = userData
	m.queue = append(m.queue, resp)
	return resp, nil
}

func (m *mockDebugger) Drain(n int) []*mi.Response {
	if n <= 0 || n > len(m.queue) {
		n = len(m.queue)
	}
	out := m.queue[:n]
	m.queue = m.queue[n:]
	return out
}

func (m *mockDebugger) Output() *session.OutputBuffer {
	return m.output
}

func (m *mockDebugger) WriteInferior(p []byte) error {
	if m.state != session.StateReady {
		return errors.New("inferior has no terminal")
	}
	m.input = append(m.input, p...)
	return nil
}

func newTestBus(t *testing.T) *events.MemoryEventBus {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{HistoryMaxEvents: 100, HistoryMaxAge: time.Hour})
	t.Cleanup(func() { bus.Close() })
	return bus
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *ErrorInfo      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Nil(t, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorInfo {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// Tests

func TestSessionHandler_Get(t *testing.T) {
	handler := NewSessionHandler(newMockDebugger())

	rec := httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest("GET", "/api/v1/session", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	decodeData(t, rec, &status)
	assert.Equal(t, "ready", status["state"])
	assert.Equal(t, "sess-1", status["id"])
}

func TestSessionHandler_Start(t *testing.T) {
	dbg := newMockDebugger()
	dbg.state = session.StateIdle
	handler := NewSessionHandler(dbg)

	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/session/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/session/start", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrConflict, decodeError(t, rec).Code)
}

func TestSessionHandler_StartFailure(t *testing.T) {
	dbg := newMockDebugger()
	dbg.state = session.StateIdle
	dbg.startErr = fmt.Errorf("start debugger: %w", errors.New("exec: \"gdb\": executable file not found"))
	handler := NewSessionHandler(dbg)

	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/session/start", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrDebuggerError, decodeError(t, rec).Code)
}

func TestSessionHandler_Stop(t *testing.T) {
	handler := NewSessionHandler(newMockDebugger())

	rec := httptest.NewRecorder()
	handler.Stop(rec, httptest.NewRequest("POST", "/api/v1/session/stop", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	decodeData(t, rec, &status)
	assert.Equal(t, "terminated", status["state"])
}

func TestCommandHandler_Send(t *testing.T) {
	dbg := newMockDebugger()
	handler := NewCommandHandler(dbg)

	body := `{"command":"-data-evaluate-expression x","tag":"eval"}`
	rec := httptest.NewRecorder()
	handler.Send(rec, httptest.NewRequest("POST", "/api/v1/commands", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]interface{}
	decodeData(t, rec, &view)
	assert.Equal(t, "result", view["kind"])
	assert.Equal(t, "done", view["class"])
	assert.Equal(t, "eval", view["tag"])
	assert.Equal(t, float64(1), view["causal"])
	assert.Equal(t, map[string]interface{}{"value": "42"}, view["items"])

	assert.Equal(t, []string{"-data-evaluate-expression x"}, dbg.sent)
	assert.Equal(t, []any{"eval"}, dbg.tags)
}

func TestCommandHandler_SendErrorResult(t *testing.T) {
	handler := NewCommandHandler(newMockDebugger())

	rec := httptest.NewRecorder()
	handler.Send(rec, httptest.NewRequest("POST", "/api/v1/commands", strings.NewReader(`{"command":"-bogus"}`)))

	// An error result record is a successful round trip.
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]interface{}
	decodeData(t, rec, &view)
	assert.Equal(t, "error", view["class"])
	assert.NotContains(t, view, "tag")
}

func TestCommandHandler_SendValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"empty command", `{"command":"  "}`},
		{"multi line", `{"command":"-a\n-b"}`},
		{"unknown field", `{"cmd":"-a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbg := newMockDebugger()
			handler := NewCommandHandler(dbg)

			rec := httptest.NewRecorder()
			handler.Send(rec, httptest.NewRequest("POST", "/api/v1/commands", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, dbg.sent)
		})
	}
}

func TestCommandHandler_SendErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{session.ErrBusy, http.StatusConflict, ErrBusy},
		{fmt.Errorf("-slow: %w", session.ErrTimeout), http.StatusGatewayTimeout, ErrTimeout},
		{session.ErrExited, http.StatusConflict, ErrExited},
		{session.ErrNotRunning, http.StatusConflict, ErrNotRunning},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrTimeout},
		{errors.New("broken pipe"), http.StatusInternalServerError, ErrDebuggerError},
	}

	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			dbg := newMockDebugger()
			dbg.sendErr = tt.err
			handler := NewCommandHandler(dbg)

			rec := httptest.NewRecorder()
			handler.Send(rec, httptest.NewRequest("POST", "/api/v1/commands", strings.NewReader(`{"command":"-x"}`)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestCommandHandler_Responses(t *testing.T) {
	dbg := newMockDebugger()
	for i := 0; i < 3; i++ {
		dbg.Send(context.Background(), "-x", nil)
	}
	handler := NewCommandHandler(dbg)

	rec := httptest.NewRecorder()
	handler.Responses(rec, httptest.NewRequest("GET", "/api/v1/responses?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var views []map[string]interface{}
	decodeData(t, rec, &views)
	require.Len(t, views, 2)
	assert.Equal(t, float64(1), views[0]["causal"])
	assert.Equal(t, float64(2), views[1]["causal"])

	rec = httptest.NewRecorder()
	handler.Responses(rec, httptest.NewRequest("GET", "/api/v1/responses", nil))
	decodeData(t, rec, &views)
	require.Len(t, views, 1)
	assert.Equal(t, float64(3), views[0]["causal"])

	rec = httptest.NewRecorder()
	handler.Responses(rec, httptest.NewRequest("GET", "/api/v1/responses", nil))
	decodeData(t, rec, &views)
	assert.Empty(t, views)
}

func TestCommandHandler_ResponsesBadLimit(t *testing.T) {
	handler := NewCommandHandler(newMockDebugger())

	rec := httptest.NewRecorder()
	handler.Responses(rec, httptest.NewRequest("GET", "/api/v1/responses?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTargetHandler_Output(t *testing.T) {
	dbg := newMockDebugger()
	for i := 1; i <= 5; i++ {
		dbg.output.Write(session.SourceTTY, fmt.Sprintf("line %d", i))
	}
	handler := NewTargetHandler(dbg)

	rec := httptest.NewRecorder()
	handler.Output(rec, httptest.NewRequest("GET", "/api/v1/target?lines=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Lines []session.OutputLine `json:"lines"`
		Seq   int64                `json:"seq"`
	}
	decodeData(t, rec, &out)
	require.Len(t, out.Lines, 2)
	assert.Equal(t, "line 4", out.Lines[0].Line)
	assert.Equal(t, int64(5), out.Seq)
}

func TestTargetHandler_Input(t *testing.T) {
	dbg := newMockDebugger()
	handler := NewTargetHandler(dbg)

	rec := httptest.NewRecorder()
	handler.Input(rec, httptest.NewRequest("POST", "/api/v1/target/input", strings.NewReader(`{"data":"42\n"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42\n", string(dbg.input))

	dbg.state = session.StateIdle
	rec = httptest.NewRecorder()
	handler.Input(rec, httptest.NewRequest("POST", "/api/v1/target/input", strings.NewReader(`{"data":"x"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEventHandler_History(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	bus.Publish(ctx, events.Event{Type: events.EventSessionStarted, Session: "a"})
	bus.Publish(ctx, events.Event{Type: events.EventGDBResult, Session: "a"})
	bus.Publish(ctx, events.Event{Type: events.EventGDBExec, Session: "b"})
	handler := NewEventHandler(bus)

	rec := httptest.NewRecorder()
	handler.History(rec, httptest.NewRequest("GET", "/api/v1/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var all []events.Event
	decodeData(t, rec, &all)
	assert.Len(t, all, 3)

	rec = httptest.NewRecorder()
	handler.History(rec, httptest.NewRequest("GET", "/api/v1/events?type=gdb.*&session=a", nil))
	var filtered []events.Event
	decodeData(t, rec, &filtered)
	require.Len(t, filtered, 1)
	assert.Equal(t, events.EventGDBResult, filtered[0].Type)

	rec = httptest.NewRecorder()
	handler.History(rec, httptest.NewRequest("GET", fmt.Sprintf("/api/v1/events?after_seq=%d", all[1].Seq), nil))
	var after []events.Event
	decodeData(t, rec, &after)
	require.Len(t, after, 1)
	assert.Equal(t, events.EventGDBExec, after[0].Type)
}

func TestEventHandler_HistoryBadParams(t *testing.T) {
	handler := NewEventHandler(newTestBus(t))

	for _, q := range []string{"after_seq=-1", "since=yesterday", "until=soon"} {
		rec := httptest.NewRecorder()
		handler.History(rec, httptest.NewRequest("GET", "/api/v1/events?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Data)
	assert.NotNil(t, resp.Meta)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, http.StatusNotFound, ErrNotFound, "resource not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	errInfo := decodeError(t, rec)
	assert.Equal(t, ErrNotFound, errInfo.Code)
	assert.Equal(t, "resource not found", errInfo.Message)
}

func TestWriteErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteErrorWithDetails(rec, http.StatusBadRequest, ErrBadRequest, "validation failed", map[string]interface{}{"field": "command"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "command", decodeError(t, rec).Details["field"])
}
