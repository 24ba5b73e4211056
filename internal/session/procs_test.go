// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescendants(t *testing.T) {
	sleeper := exec.Command("sleep", "30")
	sleeper.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, sleeper.Start())
	t.Cleanup(func() {
		sleeper.Process.Kill()
		sleeper.Wait()
	})

	assert.Contains(t, descendants(os.Getpid()), sleeper.Process.Pid)
	assert.Empty(t, descendants(sleeper.Process.Pid))
}

func TestKillAll(t *testing.T) {
	sleeper := exec.Command("sleep", "30")
	require.NoError(t, sleeper.Start())

	done := make(chan error, 1)
	go func() { done <- sleeper.Wait() }()

	killAll([]int{sleeper.Process.Pid})

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		sleeper.Process.Kill()
		t.Fatal("process survived killAll")
	}
}
