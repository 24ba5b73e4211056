// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import (
	"strconv"
	"time"
)

// Command is an MI command that has been numbered for sending.
type Command struct {
	Seq      int
	Text     string
	UserData any
	SentAt   time.Time

	// Synthetic marks the placeholder registered when the debugger starts,
	// so its banner output correlates to something.
	Synthetic bool
}

// Tracker numbers outgoing commands and correlates incoming records with
// them.
//
// Result records are matched to the oldest pending command (FIFO), not by
// the number echoed on the record. This is only correct while at most one
// command is in flight; overlapping commands are not supported.
type Tracker struct {
	nextSeq    int
	pending    []Command
	retired    [retiredKeep]Command // ring of recently completed commands
	nRetired   int
	lastCausal int
	lastUser   any
	seenCausal bool
}

// retiredKeep is how many completed commands stay available for causal
// lookups by records that trail their result (such as *stopped).
const retiredKeep = 16

// NewTracker creates a tracker whose first command is numbered 1.
func NewTracker() *Tracker {
	return &Tracker{nextSeq: 1}
}

// RegisterStart registers the synthetic process-start command. It takes
// number 0 and becomes the causal context for output printed before the
// first real command.
func (t *Tracker) RegisterStart(userData any) Command {
	cmd := Command{Seq: 0, UserData: userData, Synthetic: true, SentAt: time.Now()}
	t.pending = append(t.pending, cmd)
	t.lastCausal = 0
	t.lastUser = userData
	t.seenCausal = true
	return cmd
}

// Register assigns the next sequence number to text and appends the command
// to the pending list.
func (t *Tracker) Register(text string, userData any) Command {
	cmd := Command{
		Seq:      t.nextSeq,
		Text:     text,
		UserData: userData,
		SentAt:   time.Now(),
	}
	t.nextSeq++
	t.pending = append(t.pending, cmd)
	return cmd
}

// Cancel removes a pending command that was never written.
func (t *Tracker) Cancel(seq int) {
	for i, cmd := range t.pending {
		if cmd.Seq == seq {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// Prune drops every pending command numbered seq or lower. These are
// commands whose result will never arrive, either because it was lost or
// because a later command has already been answered. Dropped commands stay
// available for causal lookups. It returns how many were dropped.
func (t *Tracker) Prune(seq int) int {
	kept := t.pending[:0]
	n := 0
	for _, cmd := range t.pending {
		if !cmd.Synthetic && cmd.Seq <= seq {
			t.remember(cmd)
			n++
			continue
		}
		kept = append(kept, cmd)
	}
	for i := len(kept); i < len(t.pending); i++ {
		t.pending[i] = Command{}
	}
	t.pending = kept
	return n
}

// Encode renders the wire form of a command: <seq><text>\n.
func Encode(cmd Command) string {
	return strconv.Itoa(cmd.Seq) + cmd.Text + "\n"
}

// Attach fills in the causal number and user data of resp and retires the
// command it completes, if any. The retired command is returned.
func (t *Tracker) Attach(resp *Response) *Command {
	if resp.HasCausal && (!t.seenCausal || resp.Causal != t.lastCausal) {
		t.lastCausal = resp.Causal
		t.seenCausal = true
		t.lastUser = nil
		if cmd, ok := t.lookup(resp.Causal); ok {
			t.lastUser = cmd.UserData
		}
	}
	resp.Causal = t.lastCausal
	resp.HasCausal = t.seenCausal
	resp.UserData = t.lastUser

	switch resp.Kind {
	case KindResult:
		for len(t.pending) > 0 && t.pending[0].Synthetic {
			t.retireHead()
		}
		if len(t.pending) == 0 {
			return nil
		}
		return t.retireHead()
	case KindTermination:
		// The start placeholder never receives a result record; the first
		// prompt retires it so it cannot absorb a real command's result.
		if len(t.pending) > 0 && t.pending[0].Synthetic {
			return t.retireHead()
		}
	}
	return nil
}

func (t *Tracker) retireHead() *Command {
	cmd := t.pending[0]
	t.pending[0] = Command{}
	t.pending = t.pending[1:]
	t.remember(cmd)
	return &cmd
}

func (t *Tracker) remember(cmd Command) {
	t.retired[t.nRetired%retiredKeep] = cmd
	t.nRetired++
}

// Pending returns a copy of the commands still awaiting a result.
func (t *Tracker) Pending() []Command {
	out := make([]Command, len(t.pending))
	copy(out, t.pending)
	return out
}

// LastCausal returns the most recently seen causal number.
func (t *Tracker) LastCausal() int {
	return t.lastCausal
}

// NextSeq returns the number the next registered command will get.
func (t *Tracker) NextSeq() int {
	return t.nextSeq
}

func (t *Tracker) lookup(seq int) (Command, bool) {
	for _, cmd := range t.pending {
		if cmd.Seq == seq {
			return cmd, true
		}
	}
	n := min(t.nRetired, retiredKeep)
	for i := 1; i <= n; i++ {
		cmd := t.retired[(t.nRetired-i)%retiredKeep]
		if cmd.Seq == seq {
			return cmd, true
		}
	}
	return Command{}, false
}
