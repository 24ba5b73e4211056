// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminated is returned when a quoted string runs past the end of its line.
	ErrUnterminated = errors.New("unterminated string literal")

	// ErrUnbalanced is returned when a tuple or list is missing its closing delimiter.
	ErrUnbalanced = errors.New("unbalanced delimiter")

	// ErrTooDeep is returned when value nesting exceeds the parser's depth limit.
	ErrTooDeep = errors.New("value nesting too deep")
)

// GrammarError reports a record whose class name is not part of the protocol.
// The record is dropped; parsing continues with the next line.
type GrammarError struct {
	Record string // "async" or "result"
	Class  string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("unknown %s class %q", e.Record, e.Class)
}

// DesyncError reports a token that does not start any record production.
// Exactly one token is discarded per error.
type DesyncError struct {
	Token Token
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("unexpected token %s", e.Token)
}

// SyntaxError reports a malformed record body, such as a missing '=' or an
// unbalanced delimiter. The rest of the offending line is dropped.
type SyntaxError struct {
	Msg string
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
