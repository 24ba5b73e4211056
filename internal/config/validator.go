// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateDebugger(cfg, errs)
	v.validateInferior(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535")
	}
	s := cfg.Server
	if (s.TLSCert == "") != (s.TLSKey == "") {
		errs.Add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
	if s.TLSTailscale && s.TLSCert != "" {
		errs.Add("server.tls_tailscale", "cannot be combined with tls_cert")
	}
}

var interpreters = map[string]bool{
	"mi":  true,
	"mi1": true,
	"mi2": true,
	"mi3": true,
	"mi4": true,
}

func (v *Validator) validateDebugger(cfg *Config, errs *ValidationError) {
	d := cfg.Debugger
	if d.Path == "" {
		errs.Add("debugger.path", "is required")
	}
	if d.Interpreter != "" && !interpreters[d.Interpreter] {
		errs.Add("debugger.interpreter", fmt.Sprintf("unknown interpreter '%s'", d.Interpreter))
	}
	if d.MaxDepth < 0 {
		errs.Add("debugger.max_depth", "must not be negative")
	}
	for _, arg := range d.Args {
		if strings.HasPrefix(arg, "--interpreter") {
			errs.Add("debugger.args", "set the interpreter with debugger.interpreter")
		}
		if strings.HasPrefix(arg, "--tty") {
			errs.Add("debugger.args", "set the inferior terminal with inferior.tty")
		}
	}
}

func (v *Validator) validateInferior(cfg *Config, errs *ValidationError) {
	if cfg.Inferior.OutputBuffer < 0 {
		errs.Add("inferior.output_buffer", "must not be negative")
	}
	if len(cfg.Inferior.Args) > 0 && cfg.Inferior.Program == "" {
		errs.Add("inferior.args", "requires inferior.program")
	}
	if cfg.Inferior.Watch != nil && *cfg.Inferior.Watch && cfg.Inferior.Program == "" {
		errs.Add("inferior.watch", "requires inferior.program")
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	check := func(field, value string, positive bool) {
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			errs.Add(field, fmt.Sprintf("invalid duration '%s'", value))
			return
		}
		if positive && d <= 0 {
			errs.Add(field, "must be positive")
		}
	}

	check("debugger.command_timeout", cfg.Debugger.CommandTimeout, true)
	check("debugger.start_timeout", cfg.Debugger.StartTimeout, true)
	check("debugger.poll_interval", cfg.Debugger.PollInterval, true)
	check("debugger.stop_timeout", cfg.Debugger.StopTimeout, true)
	check("watch.debounce", cfg.Watch.Debounce, false)
	check("events.history.max_age", cfg.Events.History.MaxAge, true)
}
