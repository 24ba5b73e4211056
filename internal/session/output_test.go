// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citic/botNeumann-sub000/internal/mi"
)

func TestOutputBuffer_Write(t *testing.T) {
	buf := NewOutputBuffer(10)

	buf.Write(SourceTTY, "line 1")
	buf.Write(SourceMI, "line 2")

	lines := buf.Lines(10)
	require.Len(t, lines, 2)
	assert.Equal(t, "line 1", lines[0].Line)
	assert.Equal(t, SourceTTY, lines[0].Source)
	assert.Equal(t, "line 2", lines[1].Line)
	assert.Equal(t, SourceMI, lines[1].Source)
	assert.Equal(t, int64(2), buf.Sequence())
}

func TestOutputBuffer_Overflow(t *testing.T) {
	buf := NewOutputBuffer(3)
	for i := 1; i <= 5; i++ {
		buf.Write(SourceTTY, fmt.Sprintf("line %d", i))
	}

	lines := buf.Lines(10)
	require.Len(t, lines, 3)
	assert.Equal(t, "line 3", lines[0].Line)
	assert.Equal(t, "line 5", lines[2].Line)
	assert.Equal(t, int64(5), lines[2].Sequence)
}

func TestOutputBuffer_LinesLimit(t *testing.T) {
	buf := NewOutputBuffer(10)
	for i := 1; i <= 5; i++ {
		buf.Write(SourceTTY, fmt.Sprintf("line %d", i))
	}

	lines := buf.Lines(2)
	require.Len(t, lines, 2)
	assert.Equal(t, "line 4", lines[0].Line)
	assert.Empty(t, buf.Lines(0))
}

func TestOutputBuffer_Since(t *testing.T) {
	buf := NewOutputBuffer(10)
	for i := 1; i <= 4; i++ {
		buf.Write(SourceTTY, fmt.Sprintf("line %d", i))
	}

	lines := buf.Since(2)
	require.Len(t, lines, 2)
	assert.Equal(t, "line 3", lines[0].Line)
	assert.Empty(t, buf.Since(4))
}

func TestOutputBuffer_Subscribe(t *testing.T) {
	buf := NewOutputBuffer(10)
	ch := buf.Subscribe()

	buf.Write(SourceTTY, "hello")

	select {
	case l := <-ch:
		assert.Equal(t, "hello", l.Line)
	case <-time.After(time.Second):
		t.Fatal("no line delivered")
	}

	buf.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestOutputBuffer_Clear(t *testing.T) {
	buf := NewOutputBuffer(10)
	buf.Write(SourceTTY, "a")
	buf.Write(SourceTTY, "b")

	buf.Clear()
	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Lines(10))

	l := buf.Write(SourceTTY, "c")
	assert.Equal(t, int64(3), l.Sequence)
}

func TestNewResponseView(t *testing.T) {
	resp, err := mi.ParseLine(`3^done,bkpt={number="1"}`)
	require.NoError(t, err)
	resp.UserData = 7

	v := NewResponseView(resp)
	assert.Equal(t, "result", v.Kind)
	assert.Equal(t, "done", v.Class)
	require.NotNil(t, v.Causal)
	assert.Equal(t, 3, *v.Causal)
	assert.Equal(t, "7", v.Tag)
	assert.Equal(t, `3^done,bkpt={number="1"}`, v.Raw)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"result","class":"done","causal":3,"tag":"7","items":{"bkpt":{"number":"1"}},"raw":"3^done,bkpt={number=\"1\"}"}`, string(data))
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(StateBusy)
	require.NoError(t, err)
	assert.Equal(t, `"busy"`, string(data))
	assert.True(t, StateStarting.Running())
	assert.False(t, StateExited.Running())
}
