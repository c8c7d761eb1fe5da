// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// MaxWalkDepth bounds tree traversal. Config files are shallow; anything
// deeper than this is pathological input and the walk stops descending.
const MaxWalkDepth = 200

// Node type names shared by the javascript and typescript grammars.
// The typescript grammar adds the wrapper expressions.
const (
	nodeStringFragment      = "string_fragment"
	nodeNonNullExpression   = "non_null_expression"
	nodeAsExpression        = "as_expression"
	nodeTypeAssertion       = "type_assertion"
	nodeSatisfiesExpression = "satisfies_expression"
)

// Walk visits every node reachable from root in a single pre-order pass.
//
// # Description
//
// The visitor is invoked on entry to each node; returning false prunes that
// node's subtree. Traversal uses an explicit stack with a depth cap, so it
// never recurses and never panics on malformed trees. Children are visited
// in source order. Unknown node kinds need no special handling: every node
// exposes its children uniformly, and a childless node simply ends its
// branch.
//
// # Thread Safety
//
// Safe for concurrent use on distinct trees. A single tree must not be
// walked from multiple goroutines at once.
func Walk(root *sitter.Node, visit func(n *sitter.Node) bool) {
	if root == nil || visit == nil {
		return
	}

	type stackEntry struct {
		node  *sitter.Node
		depth int
	}

	stack := make([]stackEntry, 0, 64)
	stack = append(stack, stackEntry{node: root, depth: 0})

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := entry.node
		if node == nil {
			continue
		}
		if entry.depth > MaxWalkDepth {
			continue
		}

		if !visit(node) {
			continue
		}

		// Push children in reverse so the walk visits them left to right.
		childCount := int(node.ChildCount())
		for i := childCount - 1; i >= 0; i-- {
			child := node.Child(i)
			if child != nil {
				stack = append(stack, stackEntry{
					node:  child,
					depth: entry.depth + 1,
				})
			}
		}
	}
}

// NodeText returns the raw source text of a node.
func NodeText(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start > end || int(end) > len(content) {
		return ""
	}
	return string(content[start:end])
}

// Line returns the 1-indexed line the node starts on, 0 for nil.
func Line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

// StringLiteralValue extracts the inner value of a string literal node.
//
// The quotes are not part of the value. Escape sequences are returned raw,
// as written in source. Returns false when the node is not a string literal.
func StringLiteralValue(content []byte, n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}

	// The named children are the fragments between the quotes. Slicing from
	// the first to the last covers escape sequences without reassembly.
	count := int(n.NamedChildCount())
	if count > 0 {
		first := n.NamedChild(0)
		last := n.NamedChild(count - 1)
		if first != nil && last != nil && first.Type() == nodeStringFragment || count > 1 {
			return string(content[first.StartByte():last.EndByte()]), true
		}
		if first != nil && first.Type() == nodeStringFragment {
			return string(content[first.StartByte():first.EndByte()]), true
		}
	}

	// Empty string or grammar without fragment nodes: strip the quotes.
	text := NodeText(content, n)
	if len(text) >= 2 {
		return text[1 : len(text)-1], true
	}
	return text, true
}

// UnwrapExpression strips TypeScript wrapper expressions.
//
// Non-null assertions (x!), as-casts (x as T), angle-bracket assertions
// (<T>x), and satisfies expressions (x satisfies T) all wrap a value
// expression without changing it. Any number of nested wrappers unwrap;
// other node kinds return unchanged.
func UnwrapExpression(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case nodeNonNullExpression, nodeAsExpression, nodeSatisfiesExpression:
			// Wrapped expression is the first named child.
			n = n.NamedChild(0)
		case nodeTypeAssertion:
			// <T>expr keeps the expression as the last named child.
			count := int(n.NamedChildCount())
			if count == 0 {
				return n
			}
			n = n.NamedChild(count - 1)
		default:
			return n
		}
	}
	return n
}

// FirstNamedArgument returns the first named child of a call or
// new expression's arguments node, nil when there is none.
func FirstNamedArgument(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	return args.NamedChild(0)
}
