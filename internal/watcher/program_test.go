// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citic/botNeumann-sub000/internal/events"
)

func newTestBus(t *testing.T) *events.MemoryEventBus {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: 100,
		HistoryMaxAge:    time.Hour,
	})
	t.Cleanup(func() { bus.Close() })
	return bus
}

func newTestWatcher(t *testing.T, bus events.EventBus) *ProgramWatcher {
	w, err := NewProgramWatcher(bus, 30*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func changedEvents(t *testing.T, bus *events.MemoryEventBus) []events.Event {
	evts, err := bus.History(events.EventFilter{Types: []string{events.EventInferiorChanged}})
	require.NoError(t, err)
	return evts
}

func TestProgramWatcher_Watch(t *testing.T) {
	w := newTestWatcher(t, nil)
	prog := filepath.Join(t.TempDir(), "a.out")

	require.NoError(t, w.Watch(prog))
	require.NoError(t, w.Watch(prog))
	assert.Equal(t, []string{prog}, w.Watching())

	require.NoError(t, w.Unwatch(prog))
	assert.Empty(t, w.Watching())
	assert.Error(t, w.Unwatch(prog))
}

func TestProgramWatcher_MissingDirectory(t *testing.T) {
	w := newTestWatcher(t, nil)
	assert.Error(t, w.Watch("/nonexistent-dir-12345/a.out"))
}

func TestProgramWatcher_WriteTriggersEvent(t *testing.T) {
	bus := newTestBus(t)
	w := newTestWatcher(t, bus)

	prog := filepath.Join(t.TempDir(), "a.out")
	require.NoError(t, os.WriteFile(prog, []byte("v1"), 0o755))
	require.NoError(t, w.Watch(prog))

	require.NoError(t, os.WriteFile(prog, []byte("v2"), 0o755))

	require.Eventually(t, func() bool { return len(changedEvents(t, bus)) == 1 }, 2*time.Second, 10*time.Millisecond)
	evt := changedEvents(t, bus)[0]
	assert.Equal(t, prog, evt.Payload["path"])
	assert.Equal(t, int64(2), evt.Payload["size"])
}

func TestProgramWatcher_RenameReplace(t *testing.T) {
	bus := newTestBus(t)
	w := newTestWatcher(t, bus)

	dir := t.TempDir()
	prog := filepath.Join(dir, "a.out")
	require.NoError(t, os.WriteFile(prog, []byte("v1"), 0o755))
	require.NoError(t, w.Watch(prog))

	tmp := filepath.Join(dir, "a.out.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2-longer"), 0o755))
	require.NoError(t, os.Rename(tmp, prog))

	require.Eventually(t, func() bool { return len(changedEvents(t, bus)) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestProgramWatcher_IgnoresOtherFiles(t *testing.T) {
	bus := newTestBus(t)
	w := newTestWatcher(t, bus)

	dir := t.TempDir()
	prog := filepath.Join(dir, "a.out")
	require.NoError(t, w.Watch(prog))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, changedEvents(t, bus))
}

func TestProgramWatcher_Cooldown(t *testing.T) {
	bus := newTestBus(t)
	w := newTestWatcher(t, bus)
	w.SetCooldown(time.Hour)

	prog := filepath.Join(t.TempDir(), "a.out")
	require.NoError(t, os.WriteFile(prog, []byte("v1"), 0o755))
	require.NoError(t, w.Watch(prog))

	require.NoError(t, os.WriteFile(prog, []byte("v2"), 0o755))
	require.Eventually(t, func() bool { return len(changedEvents(t, bus)) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(prog, []byte("v3"), 0o755))
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, changedEvents(t, bus), 1)
}

func TestProgramWatcher_Close(t *testing.T) {
	w, err := NewProgramWatcher(nil, 0)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Watch(filepath.Join(t.TempDir(), "a.out")), ErrClosed)
}
