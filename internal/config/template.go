// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// TemplateContext holds the values available to {{ }} actions in config
// strings.
type TemplateContext struct {
	ConfigDir string // directory of the loaded config file
	Home      string
}

// NewTemplateContext builds a context for a config file at path.
func NewTemplateContext(path string) *TemplateContext {
	ctx := &TemplateContext{}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			ctx.ConfigDir = filepath.Dir(abs)
		}
	}
	ctx.Home, _ = os.UserHomeDir()
	return ctx
}

// TemplateExpander handles Go text/template variable expansion in config values.
type TemplateExpander struct {
	funcMap template.FuncMap
}

// NewTemplateExpander creates a new template expander with built-in functions.
func NewTemplateExpander() *TemplateExpander {
	return &TemplateExpander{
		funcMap: template.FuncMap{
			"env":     os.Getenv,
			"default": Default,
			"base":    filepath.Base,
			"dir":     filepath.Dir,
			"upper":   strings.ToUpper,
			"lower":   strings.ToLower,
		},
	}
}

// Expand expands template actions in a single value.
func (e *TemplateExpander) Expand(value string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("value").Funcs(e.funcMap).Option("missingkey=error").Parse(value)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", value, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("expand template %q: %w", value, err)
	}
	return buf.String(), nil
}

// ExpandConfig returns a copy of cfg with the debugger, inferior and TLS
// strings expanded. Relative paths are resolved against ConfigDir.
func (e *TemplateExpander) ExpandConfig(cfg *Config, ctx *TemplateContext) (*Config, error) {
	out := *cfg
	var err error

	d := &out.Debugger
	if d.Path, err = e.Expand(d.Path, ctx); err != nil {
		return nil, fmt.Errorf("debugger.path: %w", err)
	}
	if d.WorkDir, err = e.expandPath(d.WorkDir, ctx); err != nil {
		return nil, fmt.Errorf("debugger.work_dir: %w", err)
	}
	if d.Args, err = e.expandSlice(d.Args, ctx); err != nil {
		return nil, fmt.Errorf("debugger.args: %w", err)
	}
	if len(cfg.Debugger.Env) > 0 {
		d.Env = make(map[string]string, len(cfg.Debugger.Env))
		for k, v := range cfg.Debugger.Env {
			if d.Env[k], err = e.Expand(v, ctx); err != nil {
				return nil, fmt.Errorf("debugger.env.%s: %w", k, err)
			}
		}
	}

	inf := &out.Inferior
	if inf.Program, err = e.expandPath(inf.Program, ctx); err != nil {
		return nil, fmt.Errorf("inferior.program: %w", err)
	}
	if inf.Args, err = e.expandSlice(inf.Args, ctx); err != nil {
		return nil, fmt.Errorf("inferior.args: %w", err)
	}

	srv := &out.Server
	if srv.TLSCert, err = e.expandPath(srv.TLSCert, ctx); err != nil {
		return nil, fmt.Errorf("server.tls_cert: %w", err)
	}
	if srv.TLSKey, err = e.expandPath(srv.TLSKey, ctx); err != nil {
		return nil, fmt.Errorf("server.tls_key: %w", err)
	}

	return &out, nil
}

func (e *TemplateExpander) expandPath(value string, ctx *TemplateContext) (string, error) {
	v, err := e.Expand(value, ctx)
	if err != nil || v == "" {
		return v, err
	}
	if strings.HasPrefix(v, "~/") && ctx.Home != "" {
		v = filepath.Join(ctx.Home, v[2:])
	}
	if !filepath.IsAbs(v) && ctx.ConfigDir != "" {
		v = filepath.Join(ctx.ConfigDir, v)
	}
	return v, nil
}

func (e *TemplateExpander) expandSlice(values []string, ctx *TemplateContext) ([]string, error) {
	if values == nil {
		return nil, nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		expanded, err := e.Expand(v, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

// Default returns the value if non-empty, otherwise the default.
func Default(defaultVal, value string) string {
	if value == "" {
		return defaultVal
	}
	return value
}
