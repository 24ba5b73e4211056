// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// configNames are the file names FindConfig looks for, in order.
var configNames = []string{
	"gdbmi.hjson",
	"gdbmi.json",
	"gdbmi.yaml",
	"gdbmi.yml",
	"gdbmi.toml",
}

// Load reads and parses the configuration from the given path. The format is
// chosen by extension; anything other than YAML or TOML is read as HJSON,
// which also accepts plain JSON.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.Parse(data, filepath.Ext(path))
}

// Parse decodes config data in the format named by ext (".yaml", ".toml", ...).
func (l *Loader) Parse(data []byte, ext string) (*Config, error) {
	var raw map[string]interface{}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse hjson: %w", err)
		}
	}

	// Round trip through JSON so every format lands on the same struct tags.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// FindConfig searches dir for a config file.
func (l *Loader) FindConfig(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("config file not found (looked for %s)", strings.Join(configNames, ", "))
}

// ApplyDefaults sets default values for missing config fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7410
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	if cfg.Debugger.Path == "" {
		cfg.Debugger.Path = "gdb"
	}
	if cfg.Debugger.Interpreter == "" {
		cfg.Debugger.Interpreter = "mi"
	}
	if cfg.Debugger.CommandTimeout == "" {
		cfg.Debugger.CommandTimeout = "30s"
	}
	if cfg.Debugger.StartTimeout == "" {
		cfg.Debugger.StartTimeout = "10s"
	}
	if cfg.Debugger.PollInterval == "" {
		cfg.Debugger.PollInterval = "50ms"
	}
	if cfg.Debugger.StopTimeout == "" {
		cfg.Debugger.StopTimeout = "5s"
	}
	if cfg.Debugger.ExitCommand == "" {
		cfg.Debugger.ExitCommand = "-gdb-exit"
	}
	if cfg.Debugger.MaxDepth == 0 {
		cfg.Debugger.MaxDepth = 128
	}

	if cfg.Inferior.OutputBuffer == 0 {
		cfg.Inferior.OutputBuffer = 5000
	}

	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "100ms"
	}

	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}
}
