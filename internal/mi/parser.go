// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import (
	"strconv"
)

// DefaultMaxDepth bounds tuple/list nesting so malformed input cannot drive
// the value parser into unbounded recursion.
const DefaultMaxDepth = 128

// Parser builds Responses from the pending token list.
//
// Productions are tried in priority order: async, stream, result,
// termination. Tokens are consumed only when a production matches. A record
// never spans lines, so a production stops at the end of the line its first
// token came from.
type Parser struct {
	pending  []Token
	maxDepth int
}

// NewParser creates a parser with the default depth limit.
func NewParser() *Parser {
	return &Parser{maxDepth: DefaultMaxDepth}
}

// SetMaxDepth changes the nesting limit. Non-positive values restore the default.
func (p *Parser) SetMaxDepth(n int) {
	if n <= 0 {
		n = DefaultMaxDepth
	}
	p.maxDepth = n
}

// Push appends tokens to the pending list.
func (p *Parser) Push(tokens ...Token) {
	p.pending = append(p.pending, tokens...)
}

// Pending returns the number of unconsumed tokens.
func (p *Parser) Pending() int {
	return len(p.pending)
}

// Reset discards all pending tokens.
func (p *Parser) Reset() {
	p.pending = nil
}

// Next parses the next record. It returns (nil, nil) when no tokens are
// pending. On a *DesyncError exactly one token has been discarded; on any
// other error the rest of the offending line has been discarded. In both
// cases the caller may simply call Next again.
func (p *Parser) Next() (*Response, error) {
	if len(p.pending) == 0 {
		return nil, nil
	}

	first := p.pending[0]
	productions := []func(*cursor) (*Response, error){
		p.asyncRecord,
		streamRecord,
		p.resultRecord,
		termination,
	}

	for _, prod := range productions {
		c := p.cursor()
		resp, err := prod(c)
		if err != nil {
			p.dropLine(first.line)
			return nil, err
		}
		if resp != nil {
			resp.Causal = first.Causal
			resp.HasCausal = first.HasCausal
			p.consume(c.i)
			return resp, nil
		}
	}

	p.consume(1)
	return nil, &DesyncError{Token: first}
}

// ParseLine is a convenience that tokenizes and parses a single line holding
// exactly one record.
func ParseLine(raw string) (*Response, error) {
	line, err := Tokenize(raw)
	if err != nil {
		return nil, err
	}
	p := NewParser()
	p.Push(line.Tokens...)
	resp, err := p.Next()
	if resp != nil {
		resp.Raw = line.Raw
	}
	return resp, err
}

func (p *Parser) cursor() *cursor {
	n := 0
	if len(p.pending) > 0 {
		line := p.pending[0].line
		for n < len(p.pending) && p.pending[n].line == line {
			n++
		}
	}
	return &cursor{toks: p.pending[:n], maxDepth: p.maxDepth}
}

func (p *Parser) consume(n int) {
	if n >= len(p.pending) {
		p.pending = p.pending[:0]
		return
	}
	p.pending = p.pending[n:]
}

func (p *Parser) dropLine(line uint64) {
	n := 1
	for n < len(p.pending) && p.pending[n].line == line {
		n++
	}
	p.consume(n)
}

// cursor walks the tokens of one line without consuming them from the parser.
type cursor struct {
	toks     []Token
	i        int
	maxDepth int
}

func (c *cursor) peek() (Token, bool) {
	if c.i >= len(c.toks) {
		return Token{}, false
	}
	return c.toks[c.i], true
}

func (c *cursor) peekIs(ch byte) bool {
	t, ok := c.peek()
	return ok && t.Is(ch)
}

func (c *cursor) next() (Token, bool) {
	t, ok := c.peek()
	if ok {
		c.i++
	}
	return t, ok
}

// skipStrayWord drops an optional leading bare word when it is followed by
// one of the given record prefixes.
func (c *cursor) skipStrayWord(prefixes string) {
	t, ok := c.peek()
	if !ok || t.Kind != TokenWord || c.i+1 >= len(c.toks) {
		return
	}
	nt := c.toks[c.i+1]
	for i := 0; i < len(prefixes); i++ {
		if nt.Is(prefixes[i]) {
			c.i++
			return
		}
	}
}

func (p *Parser) asyncRecord(c *cursor) (*Response, error) {
	c.skipStrayWord("*+=")

	t, ok := c.next()
	if !ok || t.Kind != TokenPunct {
		return nil, nil
	}
	var kind ResponseKind
	switch t.Text {
	case "*":
		kind = KindExecAsync
	case "+":
		kind = KindStatusAsync
	case "=":
		kind = KindNotifyAsync
	default:
		return nil, nil
	}

	class, ok := c.next()
	if !ok || class.Kind != TokenWord {
		return nil, &SyntaxError{Msg: "async record without class"}
	}
	reason, known := ParseAsyncClass(class.Text)
	if !known {
		return nil, &GrammarError{Record: "async", Class: class.Text}
	}

	items, err := c.parseResults()
	if err != nil {
		return nil, err
	}
	return &Response{Kind: kind, Reason: reason, Items: items}, nil
}

func streamRecord(c *cursor) (*Response, error) {
	t, ok := c.next()
	if !ok || t.Kind != TokenPunct {
		return nil, nil
	}
	var kind ResponseKind
	switch t.Text {
	case "~":
		kind = KindConsoleStream
	case "@":
		kind = KindTargetStream
	case "&":
		kind = KindLogStream
	default:
		return nil, nil
	}

	s, ok := c.next()
	if !ok || s.Kind != TokenString {
		return nil, nil
	}
	return &Response{Kind: kind, Text: s.Text, Items: NewRoot()}, nil
}

func (p *Parser) resultRecord(c *cursor) (*Response, error) {
	c.skipStrayWord("^")

	if !c.peekIs('^') {
		return nil, nil
	}
	c.next()

	class, ok := c.next()
	if !ok || class.Kind != TokenWord {
		return nil, &SyntaxError{Msg: "result record without class"}
	}
	result, known := ParseResultClass(class.Text)
	if !known {
		return nil, &GrammarError{Record: "result", Class: class.Text}
	}

	items, err := c.parseResults()
	if err != nil {
		return nil, err
	}
	return &Response{Kind: KindResult, Result: result, Items: items}, nil
}

func termination(c *cursor) (*Response, error) {
	t, ok := c.next()
	if !ok || t.Kind != TokenEnd {
		return nil, nil
	}
	return &Response{Kind: KindTermination, Items: NewRoot()}, nil
}

// parseResults parses the ( "," result )* tail of a record into a root tuple.
func (c *cursor) parseResults() (Item, error) {
	root := NewRoot()
	for c.peekIs(',') {
		c.next()
		item, err := c.parseItem(1)
		if err != nil {
			return Item{}, err
		}
		root.Children = append(root.Children, item)
	}
	return root, nil
}

// parseItem parses name=value.
func (c *cursor) parseItem(depth int) (Item, error) {
	name, ok := c.next()
	if !ok {
		return Item{}, &SyntaxError{Msg: "expected item name", Err: ErrUnbalanced}
	}
	if name.Kind != TokenWord {
		return Item{}, &SyntaxError{Msg: "expected item name, got " + name.String()}
	}
	eq, ok := c.next()
	if !ok || !eq.Is('=') {
		return Item{}, &SyntaxError{Msg: "expected '=' after " + strconv.Quote(name.Text)}
	}
	return c.parseValue(name.Text, depth)
}

// parseValue parses the value following '=' (or a positional list element)
// and names the resulting node.
func (c *cursor) parseValue(name string, depth int) (Item, error) {
	if depth > c.maxDepth {
		return Item{}, &SyntaxError{Msg: "value " + strconv.Quote(name), Err: ErrTooDeep}
	}

	t, ok := c.next()
	if !ok {
		return Item{}, &SyntaxError{Msg: "missing value for " + strconv.Quote(name), Err: ErrUnbalanced}
	}

	switch {
	case t.Kind == TokenString:
		return Item{Name: name, Kind: ItemString, Value: t.Text}, nil

	case t.Is('{'):
		tuple := Item{Name: name, Kind: ItemTuple}
		if c.peekIs('}') {
			c.next()
			return tuple, nil
		}
		children, err := c.parseItems('}', depth)
		if err != nil {
			return Item{}, err
		}
		tuple.Children = children
		return tuple, nil

	case t.Is('['):
		if c.peekIs(']') {
			c.next()
			return Item{Name: name, Kind: ItemList}, nil
		}
		if nt, ok := c.peek(); ok && nt.Kind == TokenWord {
			children, err := c.parseItems(']', depth)
			if err != nil {
				return Item{}, err
			}
			return Item{Name: name, Kind: ItemList, Children: children}, nil
		}
		return c.parseValueList(name, depth)

	default:
		return Item{}, &SyntaxError{Msg: "unexpected " + t.String() + " in value of " + strconv.Quote(name)}
	}
}

// parseItems parses name=value entries separated by ',' up to and including
// the closing delimiter.
func (c *cursor) parseItems(closing byte, depth int) ([]Item, error) {
	var children []Item
	for {
		item, err := c.parseItem(depth + 1)
		if err != nil {
			return nil, err
		}
		children = append(children, item)

		t, ok := c.next()
		switch {
		case !ok:
			return nil, &SyntaxError{Msg: "missing '" + string(closing) + "'", Err: ErrUnbalanced}
		case t.Is(','):
			continue
		case t.Is(closing):
			return children, nil
		default:
			return nil, &SyntaxError{Msg: "unexpected " + t.String() + ", want ',' or '" + string(closing) + "'"}
		}
	}
}

func (c *cursor) parseValueList(name string, depth int) (Item, error) {
	list := Item{Name: name, Kind: ItemValueList}
	for n := 1; ; n++ {
		v, err := c.parseValue(strconv.Itoa(n), depth+1)
		if err != nil {
			return Item{}, err
		}
		list.Children = append(list.Children, v)

		t, ok := c.next()
		switch {
		case !ok:
			return Item{}, &SyntaxError{Msg: "missing ']'", Err: ErrUnbalanced}
		case t.Is(','):
			continue
		case t.Is(']'):
			return list, nil
		default:
			return Item{}, &SyntaxError{Msg: "unexpected " + t.String() + ", want ',' or ']'"}
		}
	}
}
