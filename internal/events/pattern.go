// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// PatternMatcher matches event types against subscription patterns.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match reports whether eventType matches pattern. Supported forms:
//   - "*" matches everything
//   - "gdb.*" matches "gdb.exec", "gdb.result", ...
//   - "*.exited" matches "session.exited"
//   - "gdb.exec|gdb.result" matches either alternative
func (pm *PatternMatcher) Match(eventType, pattern string) bool {
	if pattern == "" || eventType == "" {
		return false
	}
	if strings.Contains(pattern, "|") {
		for _, alt := range strings.Split(pattern, "|") {
			if pm.matchOne(eventType, strings.TrimSpace(alt)) {
				return true
			}
		}
		return false
	}
	return pm.matchOne(eventType, pattern)
}

func (pm *PatternMatcher) matchOne(eventType, pattern string) bool {
	switch {
	case pattern == "":
		return false
	case pattern == "*", pattern == eventType:
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, strings.TrimPrefix(pattern, "*"))
	}
	return false
}

// Compile validates a pattern and binds it to the matcher.
func (pm *PatternMatcher) Compile(pattern string) (CompiledPattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("empty pattern")
	}
	return &compiledPattern{pattern: pattern, matcher: pm}, nil
}

// CompiledPattern is a validated subscription pattern.
type CompiledPattern interface {
	Match(eventType string) bool
	String() string
}

type compiledPattern struct {
	pattern string
	matcher *PatternMatcher
}

func (cp *compiledPattern) Match(eventType string) bool {
	return cp.matcher.Match(eventType, cp.pattern)
}

func (cp *compiledPattern) String() string {
	return cp.pattern
}
