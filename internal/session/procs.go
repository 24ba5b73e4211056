// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log"
	"syscall"

	ps "github.com/mitchellh/go-ps"
)

// descendants returns the pids of every process below pid. The debugger
// starts inferiors in their own process groups, so signalling its group
// does not reach them.
func descendants(pid int) []int {
	procs, err := ps.Processes()
	if err != nil {
		log.Printf("[session] list processes: %v", err)
		return nil
	}

	children := make(map[int][]int)
	for _, p := range procs {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}

	var out []int
	queue := []int{pid}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range children[next] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// killAll sends SIGKILL to each pid that is still alive.
func killAll(pids []int) {
	for _, pid := range pids {
		if p, err := ps.FindProcess(pid); err != nil || p == nil {
			continue
		}
		if err := syscall.Kill(pid, syscall.SIGKILL); err == nil {
			log.Printf("[session] killed leftover process %d", pid)
		}
	}
}
