// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/creack/pty"
)

// inferiorTTY is the pseudo-terminal handed to the debugger with --tty so
// the program's own I/O stays off the MI stream.
type inferiorTTY struct {
	ptmx *os.File
	tty  *os.File
}

func openInferiorTTY() (*inferiorTTY, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 50, Cols: 200}); err != nil {
		log.Printf("[session] set pty size: %v", err)
	}
	return &inferiorTTY{ptmx: ptmx, tty: tty}, nil
}

// Name is the slave device path passed to the debugger.
func (t *inferiorTTY) Name() string {
	return t.tty.Name()
}

// Write sends input to the program.
func (t *inferiorTTY) Write(p []byte) (int, error) {
	return t.ptmx.Write(p)
}

// pump copies program output line by line into emit until the pty closes.
func (t *inferiorTTY) pump(emit func(line string)) {
	br := bufio.NewReader(t.ptmx)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			const maxLineLen = 64 * 1024
			if len(line) > maxLineLen {
				line = line[:maxLineLen] + "... [truncated]"
			}
			emit(line)
		}
		if err != nil {
			if err != io.EOF && !isClosedErr(err) {
				log.Printf("[session] inferior tty read: %v", err)
			}
			return
		}
	}
}

func (t *inferiorTTY) Close() {
	t.ptmx.Close()
	t.tty.Close()
}

// isClosedErr matches the errors a pty master returns once either side has
// been closed.
func isClosedErr(err error) bool {
	if errors.Is(err, os.ErrClosed) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "file already closed") || strings.Contains(s, "input/output error")
}
