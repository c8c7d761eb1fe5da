// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package federation

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/AleutianFederate/services/federate/ast"
)

// Matcher locates one dialect's federation entry point in a parsed tree and
// extracts its configuration.
//
// # Description
//
// Matchers are total functions over syntax trees: a tree with no matching
// entry point (including a nil or empty tree) yields an empty Config with
// the matcher's dialect set, never an error. Running a matcher twice on the
// same tree yields identical output.
//
// # Thread Safety
//
// Implementations are stateless and safe for concurrent use on distinct
// trees.
type Matcher interface {
	// Dialect identifies the dialect this matcher recognizes.
	Dialect() Dialect

	// Match extracts the dialect's configuration from a parsed file.
	Match(result *ast.ParseResult) Config
}

// MatcherFor returns the matcher for a dialect. The legacyVite flag widens
// the Vite plugin match from the exact name `federation` to any callee
// containing that substring. Unknown dialects return nil.
func MatcherFor(dialect Dialect, legacyVite bool) Matcher {
	switch dialect {
	case DialectWebpack:
		return NewWebpackMatcher()
	case DialectVite:
		return NewViteMatcher(legacyVite)
	case DialectRsbuild:
		return NewRsbuildMatcher()
	case DialectDeclarative:
		return NewDeclarativeMatcher()
	}
	return nil
}

// defaultExportedValues collects every value expression bound to a file's
// default export, in source order. Both module systems count:
//
//	export default defineConfig({...})
//	module.exports = createModuleFederationConfig({...})
//
// Declarations exported by default (functions, classes) are not value
// expressions and are not returned.
func defaultExportedValues(src []byte, root *sitter.Node) []*sitter.Node {
	values := make([]*sitter.Node, 0, 1)

	ast.Walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case nodeExportStatement:
			if !hasDefaultKeyword(n) {
				return true
			}
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := ast.UnwrapExpression(n.NamedChild(i))
				if child != nil && child.Type() == nodeCallExpression {
					values = append(values, child)
					break
				}
			}
			return false

		case nodeAssignment:
			left := n.ChildByFieldName("left")
			if left == nil || left.Type() != nodeMemberExpression {
				return true
			}
			if ast.NodeText(src, left) != "module.exports" {
				return true
			}
			if right := ast.UnwrapExpression(n.ChildByFieldName("right")); right != nil {
				values = append(values, right)
			}
			return false
		}
		return true
	})

	return values
}

// hasDefaultKeyword reports whether an export statement is a default export.
func hasDefaultKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.Type() == "default" {
			return true
		}
	}
	return false
}

// unwrapValue strips assertion wrappers and parentheses around a value
// expression. Parentheses are syntactic only; matchers and the resolver
// treat `({...})` and `{...}` identically.
func unwrapValue(n *sitter.Node) *sitter.Node {
	for {
		n = ast.UnwrapExpression(n)
		if n == nil || n.Type() != nodeParenthesized {
			return n
		}
		n = n.NamedChild(0)
	}
}
