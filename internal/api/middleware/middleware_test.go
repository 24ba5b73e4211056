// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestLogging(t *testing.T) {
	logs := captureLog(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{}}`))
	})

	req := httptest.NewRequest("POST", "/api/v1/commands", nil)
	rec := httptest.NewRecorder()
	Logging(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(RequestIDHeader)
	require.Len(t, id, 36)
	assert.Contains(t, logs.String(), "[http] "+id[:8]+" POST /api/v1/commands 200 11")
}

func TestLogging_KeepsRequestID(t *testing.T) {
	logs := captureLog(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/api/v1/session/start", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	Logging(handler).ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, logs.String(), "[http] abc POST")
}

func TestLogging_QuietPolling(t *testing.T) {
	logs := captureLog(t)
	status := http.StatusOK
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	rec := httptest.NewRecorder()
	Logging(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/responses", nil))
	assert.Empty(t, logs.String())

	status = http.StatusConflict
	rec = httptest.NewRecorder()
	Logging(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/responses", nil))
	assert.Contains(t, logs.String(), "GET /api/v1/responses 409")
}

func TestLogging_StatusCapture(t *testing.T) {
	captureLog(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/notfound", nil)
	rec := httptest.NewRecorder()
	Logging(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery(t *testing.T) {
	logs := captureLog(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/panic", nil)
	rec := httptest.NewRecorder()

	// Should not panic
	Recovery(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, rec.Body.String(), "timestamp")
	assert.Contains(t, logs.String(), "[CRITICAL] panic in GET /panic: test panic")
}

func TestRecovery_AfterHeaders(t *testing.T) {
	captureLog(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: 1\n\n"))
		panic("stream broke")
	})

	req := httptest.NewRequest("GET", "/api/v1/target/stream", nil)
	rec := httptest.NewRecorder()
	Logging(Recovery(handler)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: 1\n\n", rec.Body.String())
}

func TestRecovery_AbortHandler(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Recovery(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	})
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/ok", nil)
	rec := httptest.NewRecorder()
	Recovery(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORS(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()
	CORS(handler).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "GDBMI-Version")
}

func TestCORS_Preflight(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for OPTIONS")
	})

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	rec := httptest.NewRecorder()
	CORS(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusConflict)
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusConflict, rw.status)
	assert.True(t, rw.wroteHeader)
}

func TestResponseWriter_WriteCounts(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rw.Write([]byte("hello"))
	rw.Write([]byte(" world"))
	assert.Equal(t, 11, rw.size)
	assert.True(t, rw.wroteHeader)
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	var w http.ResponseWriter = &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	flusher, ok := w.(http.Flusher)
	require.True(t, ok)
	flusher.Flush()
	assert.True(t, rec.Flushed)
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _, err := rw.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}
