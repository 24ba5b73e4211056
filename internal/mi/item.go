// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ItemKind is the shape of a value in an item tree.
type ItemKind int

const (
	// ItemString is a scalar "c-string" leaf.
	ItemString ItemKind = iota
	// ItemTuple is a {name=value,...} object.
	ItemTuple
	// ItemList is a [name=value,...] list, or the empty list [].
	ItemList
	// ItemValueList is a [value,...] list; children are named "1", "2", ...
	ItemValueList
)

func (k ItemKind) String() string {
	switch k {
	case ItemString:
		return "string"
	case ItemTuple:
		return "tuple"
	case ItemList:
		return "list"
	case ItemValueList:
		return "value-list"
	default:
		return "unknown"
	}
}

// Item is a node of the tree built from a record's name=value payload.
// Children are owned by value; a tree has no back references.
type Item struct {
	Name     string
	Kind     ItemKind
	Value    string
	Children []Item
}

// NewRoot returns an empty root tuple.
func NewRoot() Item {
	return Item{Kind: ItemTuple}
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	out := it
	if it.Children != nil {
		out.Children = make([]Item, len(it.Children))
		for i, c := range it.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// IsLeaf reports whether the item is a scalar string.
func (it Item) IsLeaf() bool {
	return it.Kind == ItemString
}

// Child returns the first direct child with the given name.
func (it *Item) Child(name string) (*Item, bool) {
	for i := range it.Children {
		if it.Children[i].Name == name {
			return &it.Children[i], true
		}
	}
	return nil, false
}

// Find resolves a slash separated path such as "/bkpt/line" or
// "/thread-ids/#1". A "#N" segment selects the N-th child (1-based); any
// other segment matches a child by name.
func (it *Item) Find(path string) (*Item, bool) {
	cur := it
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "#") {
			n, err := strconv.Atoi(seg[1:])
			if err != nil || n < 1 || n > len(cur.Children) {
				return nil, false
			}
			cur = &cur.Children[n-1]
			continue
		}
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Get returns the scalar value at path, or "" when the path does not resolve.
func (it *Item) Get(path string) string {
	found, ok := it.Find(path)
	if !ok {
		return ""
	}
	return found.Value
}

// String renders the item back into MI item syntax. A nameless root tuple is
// rendered as its comma separated items, the way they follow a record class.
func (it Item) String() string {
	var sb strings.Builder
	if it.Name == "" && it.Kind == ItemTuple {
		for i, c := range it.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeItem(&sb, c)
		}
		return sb.String()
	}
	writeItem(&sb, it)
	return sb.String()
}

func writeItem(sb *strings.Builder, it Item) {
	sb.WriteString(it.Name)
	sb.WriteByte('=')
	writeValue(sb, it)
}

func writeValue(sb *strings.Builder, it Item) {
	switch it.Kind {
	case ItemString:
		sb.WriteString(Quote(it.Value))
	case ItemTuple, ItemList:
		lb, rb := byte('{'), byte('}')
		if it.Kind == ItemList {
			lb, rb = '[', ']'
		}
		sb.WriteByte(lb)
		for i, c := range it.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeItem(sb, c)
		}
		sb.WriteByte(rb)
	case ItemValueList:
		sb.WriteByte('[')
		for i, c := range it.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeValue(sb, c)
		}
		sb.WriteByte(']')
	}
}

// Quote renders s as an MI c-string, escaping quotes, backslashes and
// control characters.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				sb.WriteByte('\\')
				o := strconv.FormatInt(int64(c), 8)
				sb.WriteString(strings.Repeat("0", 3-len(o)) + o)
				continue
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// MarshalJSON projects the tree onto JSON: strings stay strings, tuples
// become objects (in source order), named lists become arrays of
// single-key objects and value lists become arrays.
func (it Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, it Item) error {
	switch it.Kind {
	case ItemString:
		b, err := json.Marshal(it.Value)
		if err != nil {
			return err
		}
		buf.Write(b)
	case ItemTuple:
		buf.WriteByte('{')
		for i, c := range it.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONField(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case ItemList:
		buf.WriteByte('[')
		for i, c := range it.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('{')
			if err := writeJSONField(buf, c); err != nil {
				return err
			}
			buf.WriteByte('}')
		}
		buf.WriteByte(']')
	case ItemValueList:
		buf.WriteByte('[')
		for i, c := range it.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

func writeJSONField(buf *bytes.Buffer, it Item) error {
	name, err := json.Marshal(it.Name)
	if err != nil {
		return err
	}
	buf.Write(name)
	buf.WriteByte(':')
	return writeJSON(buf, it)
}
