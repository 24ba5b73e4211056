// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// gdbmi-ctl is a command-line tool for driving a running gdbmi instance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/citic/botNeumann-sub000/pkg/client"
)

var (
	version    = "0.3"
	apiURL     = "http://localhost:7410"
	jsonOutput = false

	// API client instance
	apiClient *client.Client
)

func main() {
	// Check for GDBMI_API environment variable
	if env := os.Getenv("GDBMI_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	// Parse global flags and filter them out
	var filteredArgs []string
	for _, arg := range os.Args[1:] {
		if arg == "-json" {
			jsonOutput = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	// Send blocks until the result record, so allow for the server's own
	// command timeout.
	apiClient = client.New(apiURL, client.WithTimeout(2*time.Minute))

	if len(filteredArgs) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := filteredArgs[0]
	args := filteredArgs[1:]

	var err error
	switch cmd {
	case "status":
		err = cmdStatus(args)
	case "start":
		err = cmdStart(args)
	case "stop":
		err = cmdStop(args)
	case "send":
		err = cmdSend(args)
	case "drain":
		err = cmdDrain(args)
	case "output":
		err = cmdOutput(args)
	case "input":
		err = cmdInput(args)
	case "events":
		err = cmdEvents(args)
	case "version", "-v", "--version":
		fmt.Printf("gdbmi-ctl %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gdbmi-ctl - Drive a running gdbmi instance

Usage:
  gdbmi-ctl [-json] <command> [arguments]

Global Flags:
  -json          Output in JSON format

Environment:
  GDBMI_API      Base URL of the gdbmi API (default: http://localhost:7410)

Commands:
  status                   Show debugger session status
  start                    Start the debugger
  stop                     Stop the debugger

  send <command> [options] Send one MI command and print its result
    -tag <tag>             Tag echoed on every record the command causes
    -drain                 Also print records queued meanwhile

  drain [-n N]             Print and remove queued records (default: all)

  output [-n N]            Show the program's recent output (default: 100)
  input <text>             Write a line to the program's terminal

  events [options]         Show recent events
    -n N                   Number of events (default: 50)
    -type <pattern>        Filter by type pattern (e.g. gdb.*, can repeat)
    -f                     Follow live events

  version                  Show version
  help                     Show this help`)
}

// printJSON outputs any value as formatted JSON
func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func cmdStatus(args []string) error {
	st, err := apiClient.Session.Get(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(st)
		return nil
	}
	printStatus(os.Stdout, st)
	return nil
}

func printStatus(w io.Writer, st *client.Status) {
	pid := "-"
	if st.PID > 0 {
		pid = strconv.Itoa(st.PID)
	}
	fmt.Fprintf(w, "%-12s %s\n", "SESSION", valueOr(st.ID, "-"))
	fmt.Fprintf(w, "%-12s %s\n", "STATE", st.State)
	fmt.Fprintf(w, "%-12s %s\n", "PID", pid)
	if st.State == "exited" {
		fmt.Fprintf(w, "%-12s %d\n", "EXIT CODE", st.ExitCode)
	}
	fmt.Fprintf(w, "%-12s %d\n", "PENDING", st.Pending)
	fmt.Fprintf(w, "%-12s %d\n", "QUEUED", st.Queued)
	fmt.Fprintf(w, "%-12s %d\n", "NEXT SEQ", st.NextSeq)
	if st.TTY != "" {
		fmt.Fprintf(w, "%-12s %s\n", "TTY", st.TTY)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "%-12s %s\n", "ERROR", st.Error)
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func cmdStart(args []string) error {
	st, err := apiClient.Session.Start(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(st)
		return nil
	}
	fmt.Printf("Started debugger (pid: %d, state: %s)\n", st.PID, st.State)
	return nil
}

func cmdStop(args []string) error {
	st, err := apiClient.Session.Stop(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(st)
		return nil
	}
	fmt.Printf("Stopped debugger (state: %s)\n", st.State)
	return nil
}

// sendConfig holds parsed command-line options for the send command
type sendConfig struct {
	command string
	tag     string
	drain   bool
}

func parseSendArgs(args []string) (*sendConfig, error) {
	cfg := &sendConfig{}
	var words []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-tag":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-tag requires a value")
			}
			cfg.tag = args[i+1]
			i++
		case "-drain":
			cfg.drain = true
		case "--":
			words = append(words, args[i+1:]...)
			i = len(args)
		default:
			words = append(words, args[i])
		}
	}
	cfg.command = strings.Join(words, " ")
	if cfg.command == "" {
		return nil, fmt.Errorf("usage: gdbmi-ctl send <command> [-tag <tag>] [-drain]")
	}
	return cfg, nil
}

func cmdSend(args []string) error {
	cfg, err := parseSendArgs(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	resp, err := apiClient.Commands.Send(ctx, cfg.command, cfg.tag)
	if err != nil {
		return err
	}

	var queued []client.Response
	if cfg.drain {
		queued, err = apiClient.Commands.Responses(ctx, 0)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		if cfg.drain {
			printJSON(map[string]interface{}{"result": resp, "queued": queued})
		} else {
			printJSON(resp)
		}
		return nil
	}

	for i := range queued {
		fmt.Println(formatResponse(&queued[i]))
	}
	fmt.Println(formatResponse(resp))
	if resp.IsError() {
		return fmt.Errorf("%s", valueOr(resp.Message(), "command failed"))
	}
	return nil
}

func cmdDrain(args []string) error {
	limit := parseCount(args, 0)
	resps, err := apiClient.Commands.Responses(context.Background(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(resps)
		return nil
	}
	for i := range resps {
		fmt.Println(formatResponse(&resps[i]))
	}
	return nil
}

// parseCount reads a "-n N" argument, returning def when absent or invalid.
func parseCount(args []string, def int) int {
	for i := 0; i < len(args); i++ {
		if args[i] == "-n" && i+1 < len(args) {
			n, err := strconv.Atoi(args[i+1])
			if err == nil && n > 0 {
				return n
			}
			i++
		}
	}
	return def
}

// formatResponse renders a record on one line: causal number, kind, class
// and payload. Stream records show their text.
func formatResponse(r *client.Response) string {
	var sb strings.Builder
	if r.Causal != nil {
		fmt.Fprintf(&sb, "[%d] ", *r.Causal)
	}
	sb.WriteString(r.Kind)
	if r.Class != "" {
		sb.WriteString(" " + r.Class)
	}
	if r.Tag != "" {
		fmt.Fprintf(&sb, " (%s)", r.Tag)
	}
	switch r.Kind {
	case "console", "target", "log":
		sb.WriteString(" " + strconv.Quote(r.Text))
	default:
		if items := string(r.Items); items != "" && items != "{}" && items != "null" {
			sb.WriteString(" " + items)
		}
	}
	return sb.String()
}

func cmdOutput(args []string) error {
	out, err := apiClient.Target.Output(context.Background(), parseCount(args, 100))
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(out)
		return nil
	}
	for _, line := range out.Lines {
		fmt.Println(line.Line)
	}
	return nil
}

func cmdInput(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: gdbmi-ctl input <text>")
	}
	n, err := apiClient.Target.Input(context.Background(), strings.Join(args, " ")+"\n")
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]int{"written": n})
		return nil
	}
	fmt.Printf("Wrote %d bytes\n", n)
	return nil
}

// eventsConfig holds parsed command-line options for the events command
type eventsConfig struct {
	limit  int
	types  []string
	follow bool
}

func parseEventsArgs(args []string) *eventsConfig {
	cfg := &eventsConfig{limit: 50}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n":
			if i+1 < len(args) {
				if n, err := strconv.Atoi(args[i+1]); err == nil && n > 0 {
					cfg.limit = n
				}
				i++
			}
		case "-type":
			if i+1 < len(args) {
				cfg.types = append(cfg.types, args[i+1])
				i++
			}
		case "-f":
			cfg.follow = true
		}
	}
	return cfg
}

func cmdEvents(args []string) error {
	cfg := parseEventsArgs(args)

	ctx := context.Background()
	events, err := apiClient.Events.List(ctx, &client.ListOptions{Limit: cfg.limit, Types: cfg.types})
	if err != nil {
		return err
	}

	if !cfg.follow {
		if jsonOutput {
			printJSON(events)
			return nil
		}
		printEventHeader(os.Stdout)
		for _, evt := range events {
			printEvent(os.Stdout, evt)
		}
		return nil
	}

	if !jsonOutput {
		printEventHeader(os.Stdout)
	}
	var lastSeq uint64
	for _, evt := range events {
		emitEvent(evt)
		lastSeq = evt.Seq
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pattern := "*"
	if len(cfg.types) > 0 {
		pattern = strings.Join(cfg.types, "|")
	}
	err = apiClient.Events.Watch(ctx, pattern, lastSeq, func(evt client.Event) error {
		emitEvent(evt)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func emitEvent(evt client.Event) {
	if jsonOutput {
		out, _ := json.Marshal(evt)
		fmt.Println(string(out))
		return
	}
	printEvent(os.Stdout, evt)
}

func printEventHeader(w io.Writer) {
	fmt.Fprintf(w, "%-8s %-20s %-22s %s\n", "SEQ", "TIME", "TYPE", "DETAILS")
	fmt.Fprintln(w, strings.Repeat("-", 100))
}

func printEvent(w io.Writer, evt client.Event) {
	fmt.Fprintf(w, "%-8d %-20s %-22s %s\n",
		evt.Seq,
		evt.Timestamp.Format("2006-01-02 15:04:05"),
		evt.Type,
		formatPayload(evt.Payload),
	)
}

// formatPayload renders payload keys in sorted order as key=value pairs.
func formatPayload(payload map[string]interface{}) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := payload[k]
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			b, _ := json.Marshal(v)
			parts = append(parts, fmt.Sprintf("%s=%s", k, b))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
