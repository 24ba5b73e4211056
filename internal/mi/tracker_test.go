// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_SequenceNumbers(t *testing.T) {
	tr := NewTracker()

	prev := 0
	for i := 0; i < 5; i++ {
		cmd := tr.Register("-exec-next", nil)
		assert.Greater(t, cmd.Seq, prev)
		prev = cmd.Seq
	}
	assert.Equal(t, 6, tr.NextSeq())
	assert.Len(t, tr.Pending(), 5)
}

func TestEncode(t *testing.T) {
	tr := NewTracker()
	cmd := tr.Register("-break-insert main", nil)
	assert.Equal(t, "1-break-insert main\n", Encode(cmd))
}

func TestTracker_FIFORetire(t *testing.T) {
	tr := NewTracker()
	a := tr.Register("-a", "A")
	b := tr.Register("-b", "B")

	done := tr.Attach(mustParse(t, "^done"))
	require.NotNil(t, done)
	assert.Equal(t, a.Seq, done.Seq)

	done = tr.Attach(mustParse(t, "^done"))
	require.NotNil(t, done)
	assert.Equal(t, b.Seq, done.Seq)

	assert.Nil(t, tr.Attach(mustParse(t, "^done")))
	assert.Empty(t, tr.Pending())
}

func TestTracker_CausalInheritance(t *testing.T) {
	tr := NewTracker()
	tr.Register("-exec-run", "run")

	r1 := mustParse(t, "1^running")
	tr.Attach(r1)
	assert.Equal(t, 1, r1.Causal)
	assert.Equal(t, "run", r1.UserData)

	r2 := mustParse(t, `=thread-group-added,id="i1"`)
	tr.Attach(r2)
	assert.True(t, r2.HasCausal)
	assert.Equal(t, 1, r2.Causal)
	assert.Equal(t, "run", r2.UserData)

	r3 := mustParse(t, `*running,thread-id="all"`)
	tr.Attach(r3)
	assert.Equal(t, "run", r3.UserData)
	assert.Equal(t, 1, tr.LastCausal())
}

func TestTracker_NoCausalBeforeAnyCommand(t *testing.T) {
	tr := NewTracker()

	r := mustParse(t, `~"banner\n"`)
	tr.Attach(r)
	assert.False(t, r.HasCausal)
	assert.Nil(t, r.UserData)
}

func TestTracker_StartPlaceholder(t *testing.T) {
	tr := NewTracker()
	start := tr.RegisterStart("start")
	assert.Equal(t, 0, start.Seq)
	assert.True(t, start.Synthetic)

	banner := mustParse(t, `~"GNU gdb\n"`)
	tr.Attach(banner)
	assert.True(t, banner.HasCausal)
	assert.Equal(t, 0, banner.Causal)
	assert.Equal(t, "start", banner.UserData)

	retired := tr.Attach(mustParse(t, "(gdb)"))
	require.NotNil(t, retired)
	assert.True(t, retired.Synthetic)

	cmd := tr.Register("-gdb-version", "version")
	assert.Equal(t, 1, cmd.Seq)

	res := mustParse(t, "1^done")
	retired = tr.Attach(res)
	require.NotNil(t, retired)
	assert.Equal(t, 1, retired.Seq)
	assert.Equal(t, "version", res.UserData)
}

func TestTracker_TrailingRecordFindsRetiredCommand(t *testing.T) {
	tr := NewTracker()
	tr.Register("-exec-run", "run")
	tr.Register("-stack-list-frames", "frames")

	tr.Attach(mustParse(t, "1^running"))
	tr.Attach(mustParse(t, "2^done,stack=[]"))

	stopped := mustParse(t, `1*stopped,reason="breakpoint-hit"`)
	tr.Attach(stopped)
	assert.Equal(t, 1, stopped.Causal)
	assert.Equal(t, "run", stopped.UserData)
}

func TestTracker_UnknownCausal(t *testing.T) {
	tr := NewTracker()
	tr.Register("-a", "A")

	r := mustParse(t, "42^done")
	tr.Attach(r)
	assert.Equal(t, 42, r.Causal)
	assert.Nil(t, r.UserData)
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker()
	a := tr.Register("-a", nil)
	b := tr.Register("-b", nil)

	tr.Cancel(a.Seq)
	pending := tr.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, b.Seq, pending[0].Seq)

	next := tr.Register("-c", nil)
	assert.Greater(t, next.Seq, b.Seq)
}

func TestTracker_ResultSkipsStartPlaceholder(t *testing.T) {
	tr := NewTracker()
	tr.RegisterStart("start")
	cmd := tr.Register("-gdb-version", "version")

	// The first prompt never arrived; the result still belongs to cmd.
	retired := tr.Attach(mustParse(t, "1^done"))
	require.NotNil(t, retired)
	assert.Equal(t, cmd.Seq, retired.Seq)
	assert.Empty(t, tr.Pending())
}

func TestTracker_Prune(t *testing.T) {
	tr := NewTracker()
	tr.RegisterStart("start")
	tr.Register("-lost", "lost")
	tr.Register("-next", "next")
	tr.Register("-later", "later")

	assert.Equal(t, 2, tr.Prune(2))
	pending := tr.Pending()
	require.Len(t, pending, 2)
	assert.True(t, pending[0].Synthetic)
	assert.Equal(t, 3, pending[1].Seq)

	// Pruned commands still resolve trailing records.
	r := mustParse(t, `1*stopped,reason="signal-received"`)
	tr.Attach(r)
	assert.Equal(t, "lost", r.UserData)

	assert.Zero(t, tr.Prune(2))
}

func TestTracker_RetiredWindow(t *testing.T) {
	tr := NewTracker()
	for i := 1; i <= retiredKeep+4; i++ {
		tr.Register("-n", i)
		tr.Attach(mustParse(t, fmt.Sprintf("%d^done", i)))
	}
	assert.Empty(t, tr.Pending())

	recent := mustParse(t, fmt.Sprintf(`%d*stopped`, retiredKeep+4))
	tr.Attach(recent)
	assert.Equal(t, retiredKeep+4, recent.UserData)

	oldest := mustParse(t, "5*stopped")
	tr.Attach(oldest)
	assert.Equal(t, 5, oldest.UserData)

	forgotten := mustParse(t, "4*stopped")
	tr.Attach(forgotten)
	assert.Equal(t, 4, forgotten.Causal)
	assert.Nil(t, forgotten.UserData)
}
