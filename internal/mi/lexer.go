// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import (
	"bytes"
	"strings"
)

// Line is one complete line of debugger output after lexing.
type Line struct {
	Raw       string
	Causal    int
	HasCausal bool

	// Target is set when the line does not carry MI protocol content and
	// belongs to the debuggee's own output.
	Target bool
	Tokens []Token
}

// Lexer turns the raw byte stream of the debugger into tokenized lines.
// Bytes are buffered until a full line terminator is seen.
type Lexer struct {
	buf    []byte
	lineNo uint64
}

// NewLexer creates an empty lexer.
func NewLexer() *Lexer {
	return &Lexer{}
}

// Feed appends raw output to the unconsumed buffer.
func (l *Lexer) Feed(p []byte) {
	l.buf = append(l.buf, p...)
}

// Buffered returns the number of bytes waiting for a line terminator.
func (l *Lexer) Buffered() int {
	return len(l.buf)
}

// Next returns the next complete line. ok is false when only a partial line
// (or nothing) is buffered. A lexical error still returns the raw line so the
// caller can report it.
func (l *Lexer) Next() (line Line, ok bool, err error) {
	idx := bytes.IndexByte(l.buf, '\n')
	if idx < 0 {
		return Line{}, false, nil
	}

	raw := string(l.buf[:idx])
	l.buf = l.buf[idx+1:]
	if len(l.buf) == 0 {
		l.buf = nil
	}
	raw = strings.TrimSuffix(raw, "\r")

	l.lineNo++
	line, err = l.tokenize(raw, l.lineNo)
	return line, true, err
}

// Tokenize lexes a single line that has already been split off the stream.
func Tokenize(raw string) (Line, error) {
	return (&Lexer{}).tokenize(raw, 0)
}

func (l *Lexer) tokenize(raw string, lineNo uint64) (Line, error) {
	line := Line{Raw: raw}
	if raw == "" {
		return line, nil
	}

	// Leading decimal digits are the causal command number.
	i := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i > 0 {
		n := 0
		for _, c := range raw[:i] {
			n = n*10 + int(c-'0')
		}
		line.Causal = n
		line.HasCausal = true
	}

	if i >= len(raw) || !isRecordPrefix(raw[i]) {
		line.Target = true
		line.Causal, line.HasCausal = 0, false
		return line, nil
	}

	emit := func(kind TokenKind, text string) {
		line.Tokens = append(line.Tokens, Token{
			Kind:      kind,
			Text:      text,
			Causal:    line.Causal,
			HasCausal: line.HasCausal,
			line:      lineNo,
		})
	}

	for i < len(raw) {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t':
			i++

		case c == '"':
			text, next, err := scanString(raw, i+1)
			if err != nil {
				return line, err
			}
			emit(TokenString, text)
			i = next

		case c == '(':
			// Compare progressively against the prompt; fall back to a bare
			// word as soon as the text diverges.
			k := 0
			for i+k < len(raw) && k < len(Prompt) && raw[i+k] == Prompt[k] {
				k++
			}
			if k == len(Prompt) {
				emit(TokenEnd, Prompt)
				i += k
				continue
			}
			word, next := scanWord(raw, i)
			emit(TokenWord, word)
			i = next

		case isPunct(c):
			emit(TokenPunct, string(c))
			i++

		default:
			word, next := scanWord(raw, i)
			emit(TokenWord, word)
			i = next
		}
	}

	return line, nil
}

// scanWord accumulates a bare word starting at i. The terminating
// punctuation or quote is left for the next scan step.
func scanWord(raw string, i int) (string, int) {
	j := i
	for j < len(raw) && !isPunct(raw[j]) && raw[j] != '"' {
		j++
	}
	if j == i {
		// A lone '(' that is not a prompt still has to make progress.
		j++
	}
	return strings.TrimRight(raw[i:j], " \t"), j
}

// scanString decodes a C-style quoted string whose body starts at i. It
// returns the decoded text and the index after the closing quote.
func scanString(raw string, i int) (string, int, error) {
	var sb strings.Builder
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '"':
			return sb.String(), i + 1, nil
		case '\\':
			i++
			if i >= len(raw) {
				return "", i, ErrUnterminated
			}
			e := raw[i]
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'a':
				sb.WriteByte('\a')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'v':
				sb.WriteByte('\v')
			case 'e':
				sb.WriteByte(0x1b)
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v, n := 0, 0
				for n < 3 && i+n < len(raw) && raw[i+n] >= '0' && raw[i+n] <= '7' {
					v = v*8 + int(raw[i+n]-'0')
					n++
				}
				sb.WriteByte(byte(v))
				i += n - 1
			default:
				// \" \\ \' and anything unknown stand for themselves.
				sb.WriteByte(e)
			}
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", i, ErrUnterminated
}
