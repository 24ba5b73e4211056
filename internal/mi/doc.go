// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mi implements the client side of the GDB Machine Interface text
// protocol: a line lexer, a recursive-descent record and value parser, and a
// command tracker that correlates output records with the commands that
// caused them.
//
// The package does no I/O. A driver feeds raw debugger output into a Lexer,
// pushes the tokens of each complete line into a Parser, and passes every
// parsed Response through a Tracker before handing it to consumers:
//
//	lx := mi.NewLexer()
//	p := mi.NewParser()
//	tr := mi.NewTracker()
//
//	lx.Feed(chunk)
//	for {
//		line, ok, err := lx.Next()
//		if !ok {
//			break
//		}
//		...
//		p.Push(line.Tokens...)
//		for {
//			resp, err := p.Next()
//			if resp == nil && err == nil {
//				break
//			}
//			...
//			tr.Attach(resp)
//		}
//	}
package mi
