// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session drives a debugger subprocess over the MI protocol: it
// spawns the process, writes numbered commands, runs the output through the
// mi lexer, parser and tracker, and queues the resulting responses for the
// caller.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/citic/botNeumann-sub000/internal/config"
	"github.com/citic/botNeumann-sub000/internal/events"
	"github.com/citic/botNeumann-sub000/internal/mi"
)

// StartTag is the user data attached to output produced before the first
// command is sent.
const StartTag = "start"

const (
	chunkBacklog = 256
	readBufSize  = 32 * 1024

	// exitDrain bounds how long output still in the pipe is collected after
	// the process has exited.
	exitDrain = 250 * time.Millisecond
)

// record pairs a parsed response with the command it completed, if any.
// A record with no response marks a line the parser dropped.
type record struct {
	resp    *mi.Response
	retired *mi.Command

	// echo is the command number printed on the line itself, as opposed
	// to one inherited from earlier records.
	echo    int
	hasEcho bool
}

// answers reports whether rec is the result of command seq. A result
// carrying another command's number is a late reply to that command.
func (rec record) answers(seq int) bool {
	return rec.resp != nil && rec.resp.Kind == mi.KindResult && (!rec.hasEcho || rec.echo == seq)
}

// Session owns one debugger subprocess.
type Session struct {
	dbg    config.DebuggerConfig
	inf    config.InferiorConfig
	bus    events.EventBus
	output *OutputBuffer

	mu            sync.RWMutex
	id            string
	state         State
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	pid           int
	exitCode      int
	startedAt     time.Time
	stoppedAt     time.Time
	stopRequested bool
	lastErr       string
	chunks        chan []byte
	waitDone      chan struct{}
	tty           *inferiorTTY

	wmu sync.Mutex // serializes writes to stdin

	// pipeMu guards the parse pipeline. Whoever holds it reads output.
	pipeMu  sync.Mutex
	lexer   *mi.Lexer
	parser  *mi.Parser
	tracker *mi.Tracker

	inflight atomic.Bool

	qmu   sync.Mutex
	queue []*mi.Response
	ready chan struct{}
}

// New creates an idle session.
func New(dbg config.DebuggerConfig, inf config.InferiorConfig, bus events.EventBus) *Session {
	return &Session{
		dbg:     dbg,
		inf:     inf,
		bus:     bus,
		output:  NewOutputBuffer(inf.OutputBuffer),
		state:   StateIdle,
		lexer:   mi.NewLexer(),
		parser:  mi.NewParser(),
		tracker: mi.NewTracker(),
		ready:   make(chan struct{}, 1),
	}
}

// Start spawns the debugger and waits for its first prompt. On failure the
// session is left stopped and may be started again.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Running() {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	var tty *inferiorTTY
	if s.inf.UseTTY() {
		t, err := openInferiorTTY()
		if err != nil {
			log.Printf("[session] no inferior terminal, program output stays on the MI stream: %v", err)
		} else {
			tty = t
		}
	}

	args := s.buildArgs(tty)
	cmd := exec.Command(s.dbg.Path, args...)
	cmd.Dir = s.dbg.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = os.Environ()
	for k, v := range s.dbg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, stdout, stderr, err := attachPipes(cmd)
	if err != nil {
		s.mu.Unlock()
		if tty != nil {
			tty.Close()
		}
		return err
	}

	log.Printf("[session] starting: %s %s", s.dbg.Path, strings.Join(args, " "))
	err = cmd.Start()
	// The child owns the write ends now.
	cmd.Stdout.(*os.File).Close()
	cmd.Stderr.(*os.File).Close()
	if err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		if tty != nil {
			tty.Close()
		}
		s.state = StateIdle
		s.lastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("start debugger: %w", err)
	}

	s.id = uuid.NewString()
	s.cmd = cmd
	s.stdin = stdin
	s.pid = cmd.Process.Pid
	s.exitCode = 0
	s.startedAt = time.Now()
	s.stoppedAt = time.Time{}
	s.stopRequested = false
	s.lastErr = ""
	s.state = StateStarting
	s.chunks = make(chan []byte, chunkBacklog)
	s.waitDone = make(chan struct{})
	s.tty = tty
	id, pid, chunks, waitDone := s.id, s.pid, s.chunks, s.waitDone
	s.mu.Unlock()

	go readPipe(stdout, chunks)
	go captureStderr(stderr)
	go s.waitForExit(cmd, waitDone)
	if tty != nil {
		go tty.pump(func(line string) { s.writeOutput(SourceTTY, line) })
	}

	s.pipeMu.Lock()
	s.lexer = mi.NewLexer()
	s.parser = mi.NewParser()
	s.parser.SetMaxDepth(s.dbg.MaxDepth)
	s.tracker = mi.NewTracker()
	s.tracker.RegisterStart(StartTag)
	s.qmu.Lock()
	s.queue = nil
	s.qmu.Unlock()

	s.publish(events.EventSessionStarted, map[string]interface{}{
		"pid":  pid,
		"args": args,
	})

	err = s.awaitPrompt(ctx)
	s.pipeMu.Unlock()

	if err != nil {
		log.Printf("[session] %s did not come up: %v", id, err)
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.Stop(context.Background())
		return fmt.Errorf("start debugger: %w", err)
	}

	s.setStateIf(StateStarting, StateReady)
	log.Printf("[session] %s ready (pid %d)", id, pid)
	return nil
}

func (s *Session) buildArgs(tty *inferiorTTY) []string {
	args := []string{s.dbg.InterpreterFlag()}
	if tty != nil {
		args = append(args, "--tty="+tty.Name())
	}
	args = append(args, s.dbg.Args...)
	if s.inf.Program != "" {
		args = append(args, "--args", s.inf.Program)
		args = append(args, s.inf.Args...)
	}
	return args
}

func attachPipes(cmd *exec.Cmd) (io.WriteCloser, *os.File, *os.File, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	// os.Pipe rather than StdoutPipe: Wait must not close the read side
	// before buffered output has been consumed.
	outR, outW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		outR.Close()
		outW.Close()
		return nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW
	return stdin, outR, errR, nil
}

// awaitPrompt runs the pipeline until the first prompt. Caller holds pipeMu.
func (s *Session) awaitPrompt(ctx context.Context) error {
	deadline := time.Now().Add(s.dbg.StartTimeoutDuration())
	poll := s.dbg.PollIntervalDuration()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("first prompt: %w", ErrTimeout)
		}
		recs, err := s.pollLocked(min(poll, remaining))
		for _, rec := range recs {
			if rec.resp != nil && rec.resp.Kind == mi.KindTermination {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

// Send writes a command and blocks until its result record arrives. Every
// record read while waiting is queued in arrival order; the result is both
// queued and returned. Only one Send may be in flight.
//
// If the parser drops a record and a prompt follows with no result, the
// result is taken as lost and the prompt is returned instead. Either way
// the command, and any older command still waiting, leaves the pending
// list so later results line up again.
func (s *Session) Send(ctx context.Context, text string, userData any) (*mi.Response, error) {
	if !s.inflight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.inflight.Store(false)

	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.state = StateBusy
	case StateStarting, StateBusy:
		s.mu.Unlock()
		return nil, ErrBusy
	case StateExited:
		s.mu.Unlock()
		return nil, ErrExited
	default:
		s.mu.Unlock()
		return nil, ErrNotRunning
	}
	s.mu.Unlock()
	defer s.setStateIf(StateBusy, StateReady)

	s.pipeMu.Lock()
	defer s.pipeMu.Unlock()

	cmd := s.tracker.Register(text, userData)
	if err := s.write(mi.Encode(cmd)); err != nil {
		s.tracker.Cancel(cmd.Seq)
		return nil, fmt.Errorf("write command: %w", err)
	}

	deadline := time.Now().Add(s.dbg.CommandTimeoutDuration())
	poll := s.dbg.PollIntervalDuration()
	dropped := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Printf("[session] no result for %d%s after %s", cmd.Seq, text, s.dbg.CommandTimeoutDuration())
			return nil, fmt.Errorf("%s: %w", text, ErrTimeout)
		}
		recs, err := s.pollLocked(min(poll, remaining))
		for _, rec := range recs {
			switch {
			case rec.resp == nil:
				dropped = true
			case rec.answers(cmd.Seq):
				s.settle(cmd, rec)
				return rec.resp, nil
			case rec.resp.Kind == mi.KindResult:
				log.Printf("[session] late result for %d while waiting on %d", rec.echo, cmd.Seq)
			case rec.resp.Kind == mi.KindTermination && dropped:
				log.Printf("[session] result for %d%s was lost", cmd.Seq, text)
				s.tracker.Prune(cmd.Seq)
				return rec.resp, nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// settle clears cmd and anything queued ahead of it from the tracker once
// its result is in. Caller holds pipeMu.
func (s *Session) settle(cmd mi.Command, rec record) {
	if rec.retired != nil && rec.retired.Seq != cmd.Seq {
		log.Printf("[session] result for %d arrived while %d was still pending, dropping stale commands", cmd.Seq, rec.retired.Seq)
	}
	s.tracker.Prune(cmd.Seq)
}

// Poll waits up to timeout for debugger output and processes every complete
// line. It returns the number of responses queued. While a Send is in
// flight Poll blocks until it finishes.
func (s *Session) Poll(timeout time.Duration) (int, error) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state == StateIdle || state == StateTerminated {
		return 0, ErrNotRunning
	}

	s.pipeMu.Lock()
	defer s.pipeMu.Unlock()
	recs, err := s.pollLocked(timeout)
	n := 0
	for _, rec := range recs {
		if rec.resp != nil {
			n++
		}
	}
	return n, err
}

// pollLocked feeds available output through the pipeline. It returns
// ErrExited once the process is gone and its output has been consumed.
// Caller holds pipeMu.
func (s *Session) pollLocked(wait time.Duration) ([]record, error) {
	s.mu.RLock()
	chunks, done := s.chunks, s.waitDone
	s.mu.RUnlock()
	if chunks == nil {
		return nil, ErrNotRunning
	}

	closed, exited := false, false
	timer := time.NewTimer(wait)
	select {
	case b, ok := <-chunks:
		if ok {
			s.lexer.Feed(b)
		} else {
			closed = true
		}
	case <-done:
		exited = true
	case <-timer.C:
	}
	timer.Stop()

	if !closed {
		closed = s.drain(chunks, exited)
	}

	recs := s.processLocked()
	if closed || exited {
		return recs, ErrExited
	}
	return recs, nil
}

// drain feeds already buffered chunks into the lexer. After exit it keeps
// reading for up to exitDrain so trailing output is not lost. It reports
// whether the channel is closed.
func (s *Session) drain(chunks <-chan []byte, exited bool) bool {
	if !exited {
		for {
			select {
			case b, ok := <-chunks:
				if !ok {
					return true
				}
				s.lexer.Feed(b)
			default:
				return false
			}
		}
	}

	timer := time.NewTimer(exitDrain)
	defer timer.Stop()
	for {
		select {
		case b, ok := <-chunks:
			if !ok {
				return true
			}
			s.lexer.Feed(b)
		case <-timer.C:
			return false
		}
	}
}

// processLocked runs complete lines through parser and tracker and queues
// the results. Caller holds pipeMu.
func (s *Session) processLocked() []record {
	var recs []record
	for {
		line, ok, err := s.lexer.Next()
		if !ok {
			return recs
		}
		if err != nil {
			log.Printf("[session] dropping malformed line %q: %v", line.Raw, err)
			recs = append(recs, record{})
			continue
		}
		if line.Target {
			s.writeOutput(SourceMI, line.Raw)
			continue
		}

		s.parser.Push(line.Tokens...)
		for {
			resp, err := s.parser.Next()
			if err != nil {
				logParseError(line.Raw, err)
				recs = append(recs, record{})
				continue
			}
			if resp == nil {
				break
			}
			resp.Raw = line.Raw
			rec := record{resp: resp, echo: resp.Causal, hasEcho: resp.HasCausal}
			rec.retired = s.tracker.Attach(resp)
			s.enqueue(resp)
			recs = append(recs, rec)
		}
	}
}

func logParseError(raw string, err error) {
	var ge *mi.GrammarError
	var de *mi.DesyncError
	switch {
	case errors.As(err, &ge):
		log.Printf("[CRITICAL] dropping record %q: %v", raw, err)
	case errors.As(err, &de):
		log.Printf("[session] protocol desync in %q: %v", raw, err)
	default:
		log.Printf("[session] dropping malformed record %q: %v", raw, err)
	}
}

func (s *Session) enqueue(resp *mi.Response) {
	s.qmu.Lock()
	wasEmpty := len(s.queue) == 0
	s.queue = append(s.queue, resp)
	s.qmu.Unlock()

	if wasEmpty {
		select {
		case s.ready <- struct{}{}:
		default:
		}
	}

	s.publish(events.RecordEventType(resp.Kind.String()), map[string]interface{}{
		"response": NewResponseView(resp),
	})
}

// TakeNext removes and returns the oldest queued response.
func (s *Session) TakeNext() (*mi.Response, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	resp := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return resp, true
}

// Drain removes up to n queued responses (all of them when n <= 0).
func (s *Session) Drain(n int) []*mi.Response {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if n <= 0 || n > len(s.queue) {
		n = len(s.queue)
	}
	out := make([]*mi.Response, n)
	copy(out, s.queue[:n])
	s.queue = append(s.queue[:0:0], s.queue[n:]...)
	return out
}

// Len returns the number of queued responses.
func (s *Session) Len() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.queue)
}

// Ready returns a channel that receives a value when the queue goes from
// empty to non-empty. It holds at most one pending signal.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Stop sends the exit command and waits for the debugger to leave, then
// escalates to SIGTERM and SIGKILL on its process group.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Running() {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	cmd, waitDone, id := s.cmd, s.waitDone, s.id
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	timeout := s.dbg.StopTimeoutDuration()
	pgid := cmd.Process.Pid

	if s.dbg.ExitCommand != "" {
		if err := s.write(s.dbg.ExitCommand + "\n"); err != nil {
			log.Printf("[session] %s: write exit command: %v", id, err)
		}
		if s.waitExit(ctx, waitDone, timeout, pgid) {
			return nil
		}
	}

	// Collected while the debugger is alive; its children are reparented
	// once it dies.
	leftover := descendants(pgid)
	defer killAll(leftover)

	log.Printf("[session] %s did not exit, sending SIGTERM", id)
	syscall.Kill(-pgid, syscall.SIGTERM)
	if s.waitExit(ctx, waitDone, timeout, pgid) {
		return nil
	}

	log.Printf("[session] %s ignored SIGTERM, killing", id)
	syscall.Kill(-pgid, syscall.SIGKILL)
	<-waitDone
	return nil
}

// waitExit waits for the process to exit. A cancelled ctx kills the process
// group outright.
func (s *Session) waitExit(ctx context.Context, waitDone <-chan struct{}, timeout time.Duration, pgid int) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waitDone:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		syscall.Kill(-pgid, syscall.SIGKILL)
		<-waitDone
		return true
	}
}

// WriteInferior sends input to the program's terminal.
func (s *Session) WriteInferior(p []byte) error {
	s.mu.RLock()
	tty := s.tty
	s.mu.RUnlock()
	if tty == nil {
		return errors.New("inferior has no terminal")
	}
	_, err := tty.Write(p)
	return err
}

func (s *Session) write(line string) error {
	s.mu.RLock()
	stdin := s.stdin
	s.mu.RUnlock()
	if stdin == nil {
		return ErrNotRunning
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := io.WriteString(stdin, line)
	return err
}

func (s *Session) waitForExit(cmd *exec.Cmd, waitDone chan struct{}) {
	err := cmd.Wait()

	s.mu.Lock()
	s.stoppedAt = time.Now()
	requested := s.stopRequested
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.exitCode = exitErr.ExitCode()
		} else {
			s.exitCode = -1
		}
	} else {
		s.exitCode = 0
	}
	if requested {
		s.state = StateTerminated
	} else {
		s.state = StateExited
		if err != nil {
			s.lastErr = err.Error()
		} else {
			s.lastErr = "debugger exited"
		}
	}
	id, exitCode, tty := s.id, s.exitCode, s.tty
	s.tty = nil
	s.stdin = nil
	s.mu.Unlock()

	close(waitDone)
	if tty != nil {
		tty.Close()
	}

	payload := map[string]interface{}{"exit_code": exitCode}
	if requested {
		log.Printf("[session] %s stopped", id)
		s.publish(events.EventSessionStopped, payload)
	} else {
		log.Printf("[session] %s exited unexpectedly (code %d)", id, exitCode)
		s.publish(events.EventSessionExited, payload)
	}
}

func (s *Session) setStateIf(from, to State) {
	s.mu.Lock()
	if s.state == from {
		s.state = to
	}
	s.mu.Unlock()
}

func (s *Session) writeOutput(source, line string) {
	ol := s.output.Write(source, line)
	s.publish(events.EventInferiorOutput, map[string]interface{}{
		"line":   ol.Line,
		"seq":    ol.Sequence,
		"source": ol.Source,
	})
}

func (s *Session) publish(eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.mu.RLock()
	id := s.id
	s.mu.RUnlock()
	if err := s.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		Session: id,
		Payload: payload,
	}); err != nil && !errors.Is(err, events.ErrBusClosed) {
		log.Printf("[session] publish %s: %v", eventType, err)
	}
}

// ID returns the id of the current (or last) debugger process.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Output returns the inferior output buffer.
func (s *Session) Output() *OutputBuffer {
	return s.output
}

// Status returns a snapshot of the session. It does not wait for an
// in-flight command; tracker fields are omitted while one is running.
func (s *Session) Status() Status {
	s.mu.RLock()
	st := Status{
		ID:        s.id,
		State:     s.state,
		PID:       s.pid,
		ExitCode:  s.exitCode,
		StartedAt: s.startedAt,
		StoppedAt: s.stoppedAt,
		Error:     s.lastErr,
	}
	if s.tty != nil {
		st.TTY = s.tty.Name()
	}
	if !s.state.Running() {
		st.PID = 0
	}
	s.mu.RUnlock()

	st.Queued = s.Len()
	if s.pipeMu.TryLock() {
		st.Pending = len(s.tracker.Pending())
		st.LastCausal = s.tracker.LastCausal()
		st.NextSeq = s.tracker.NextSeq()
		s.pipeMu.Unlock()
	}
	return st
}

func readPipe(r io.ReadCloser, chunks chan<- []byte) {
	defer close(chunks)
	defer r.Close()

	buf := make([]byte, readBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			chunks <- b
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("[session] stdout read error: %v", err)
			}
			return
		}
	}
}

func captureStderr(r io.ReadCloser) {
	defer r.Close()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			log.Printf("[gdb] %s", line)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("[session] stderr read error: %v", err)
			}
			return
		}
	}
}
