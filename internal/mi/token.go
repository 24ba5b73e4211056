// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenString
	TokenPunct
	TokenEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenString:
		return "string"
	case TokenPunct:
		return "punct"
	case TokenEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Token is a single lexical unit of an MI output line.
type Token struct {
	Kind TokenKind
	Text string

	// Causal is the command number prefixed to the line the token came from.
	// It is only meaningful when HasCausal is set.
	Causal    int
	HasCausal bool

	// line numbers the source line, so a malformed record can be dropped
	// without touching tokens of the following line.
	line uint64
}

// Is reports whether the token is the punctuation character c.
func (t Token) Is(c byte) bool {
	return t.Kind == TokenPunct && len(t.Text) == 1 && t.Text[0] == c
}

func (t Token) String() string {
	if t.Kind == TokenString {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

// Prompt is the literal end-of-turn marker printed by the debugger.
const Prompt = "(gdb)"

// isPunct reports whether c is a single-character MI punctuation token.
func isPunct(c byte) bool {
	switch c {
	case '=', '{', '}', '[', ']', '^', '+', ',', '~', '@', '*', '&':
		return true
	}
	return false
}

// isRecordPrefix reports whether c can start protocol content after the
// optional causal number.
func isRecordPrefix(c byte) bool {
	switch c {
	case '(', '^', '*', '+', '~', '@', '&', '=':
		return true
	}
	return false
}
