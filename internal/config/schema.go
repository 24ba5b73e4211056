// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and template expansion.
package config

import (
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Version  string         `json:"version"`
	Debugger DebuggerConfig `json:"debugger"`
	Inferior InferiorConfig `json:"inferior"`
	Server   ServerConfig   `json:"server"`
	Events   EventsConfig   `json:"events"`
	Watch    WatchConfig    `json:"watch"`
}

// DebuggerConfig configures the debugger subprocess and its MI session.
type DebuggerConfig struct {
	Path        string            `json:"path"`
	Args        []string          `json:"args"`
	WorkDir     string            `json:"work_dir"`
	Env         map[string]string `json:"env"`
	Interpreter string            `json:"interpreter"` // "mi", "mi2" or "mi3"

	CommandTimeout string `json:"command_timeout"` // bound on a blocking send
	StartTimeout   string `json:"start_timeout"`   // wait for the first prompt
	PollInterval   string `json:"poll_interval"`   // read wait per poll step
	StopTimeout    string `json:"stop_timeout"`    // grace period per stop stage

	ExitCommand string `json:"exit_command"`
	MaxDepth    int    `json:"max_depth"` // value nesting limit
}

// InferiorConfig describes the program being debugged.
type InferiorConfig struct {
	Program      string   `json:"program"`
	Args         []string `json:"args"`
	TTY          *bool    `json:"tty"`           // give the program its own pseudo-terminal
	OutputBuffer int      `json:"output_buffer"` // lines of program output kept
	Watch        *bool    `json:"watch"`         // reload symbols when the binary changes
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`

	TLSCert      string `json:"tls_cert"`      // enables HTTPS together with tls_key
	TLSKey       string `json:"tls_key"`
	TLSTailscale bool   `json:"tls_tailscale"` // certificates from the local tailscaled
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event retention.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// WatchConfig configures binary watching.
type WatchConfig struct {
	Debounce string `json:"debounce"`
}

// Defaults for durations that are parsed lazily.
const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultStartTimeout   = 10 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultStopTimeout    = 5 * time.Second
	DefaultDebounce       = 100 * time.Millisecond
	DefaultHistoryMaxAge  = time.Hour
)

// ParseDuration parses a duration string, returning defaultVal if empty or invalid.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// CommandTimeoutDuration returns the parsed command timeout.
func (d *DebuggerConfig) CommandTimeoutDuration() time.Duration {
	return ParseDuration(d.CommandTimeout, DefaultCommandTimeout)
}

// StartTimeoutDuration returns the parsed start timeout.
func (d *DebuggerConfig) StartTimeoutDuration() time.Duration {
	return ParseDuration(d.StartTimeout, DefaultStartTimeout)
}

// PollIntervalDuration returns the parsed poll interval.
func (d *DebuggerConfig) PollIntervalDuration() time.Duration {
	return ParseDuration(d.PollInterval, DefaultPollInterval)
}

// StopTimeoutDuration returns the parsed stop timeout.
func (d *DebuggerConfig) StopTimeoutDuration() time.Duration {
	return ParseDuration(d.StopTimeout, DefaultStopTimeout)
}

// InterpreterFlag returns the command line flag selecting the MI interpreter.
func (d *DebuggerConfig) InterpreterFlag() string {
	interp := d.Interpreter
	if interp == "" {
		interp = "mi"
	}
	return "--interpreter=" + interp
}

// UseTTY reports whether the inferior gets its own pseudo-terminal.
func (i *InferiorConfig) UseTTY() bool {
	if i.TTY == nil {
		return true
	}
	return *i.TTY
}

// IsWatching reports whether the inferior binary is watched for changes.
func (i *InferiorConfig) IsWatching() bool {
	if i.Watch == nil {
		return i.Program != ""
	}
	return *i.Watch && i.Program != ""
}
