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
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/AleutianFederate/services/federate/ast"
)

// ExprKind classifies a value expression into the closed set of shapes the
// resolver knows how to render.
type ExprKind int

// Expression kinds, in resolution-priority order.
const (
	// ExprWrapper is a type assertion, non-null assertion, satisfies
	// expression, or parenthesized expression. Wrappers are transparent:
	// resolution recurses into the wrapped expression.
	ExprWrapper ExprKind = iota

	// ExprLiteral is a plain string literal.
	ExprLiteral

	// ExprIdentifier is a bare identifier reference.
	ExprIdentifier

	// ExprMember is a property-access chain such as a.b or a.b.c.
	ExprMember

	// ExprTemplate is a template string with substitutions.
	ExprTemplate

	// ExprCall is a function-call expression.
	ExprCall

	// ExprConditional is a ternary expression.
	ExprConditional

	// ExprBinary is a binary expression such as string concatenation.
	ExprBinary

	// ExprOther is any shape with no specific rendering.
	ExprOther
)

// ClassifyExpression maps a node to its ExprKind. Nil classifies as
// ExprOther; callers that care about nil check it before classifying.
func ClassifyExpression(n *sitter.Node) ExprKind {
	if n == nil {
		return ExprOther
	}
	switch n.Type() {
	case "non_null_expression", "as_expression", "type_assertion",
		"satisfies_expression", nodeParenthesized:
		return ExprWrapper
	case nodeString:
		return ExprLiteral
	case nodeIdentifier:
		return ExprIdentifier
	case nodeMemberExpression:
		return ExprMember
	case nodeTemplateString:
		return ExprTemplate
	case nodeCallExpression:
		return ExprCall
	case nodeTernaryExpression:
		return ExprConditional
	case nodeBinaryExpression:
		return ExprBinary
	default:
		return ExprOther
	}
}

// ResolveExpression renders a best-effort string for a value expression.
//
// # Description
//
// The input is the right-hand side of a configuration property, typically a
// remote's entry URL. Expressions that cannot be evaluated statically render
// as tagged placeholders:
//
//	'http://x/remote.js'      → http://x/remote.js
//	remoteUrl                 → [VAR: remoteUrl]
//	process.env.REMOTE_URL    → [ENV: process.env.REMOTE_URL]
//	`http://${host}/r.js`     → http://[EXPR]/r.js
//	getRemoteUrl()            → [FUNC: getRemoteUrl()]
//	isDev ? devUrl : prodUrl  → [CONDITIONAL]
//	base + '/remote.js'       → [EXPR]
//	anything else             → [DYNAMIC_URL]
//
// Returns false only for a nil node. Every non-nil expression shape yields
// some string; the function is pure and never panics.
func ResolveExpression(src []byte, n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}

	switch ClassifyExpression(n) {
	case ExprWrapper:
		return resolveWrapped(src, n)

	case ExprLiteral:
		value, _ := ast.StringLiteralValue(src, n)
		return value, true

	case ExprIdentifier:
		return fmt.Sprintf("[VAR: %s]", ast.NodeText(src, n)), true

	case ExprMember:
		if path, ok := memberPath(src, n); ok {
			return fmt.Sprintf("[ENV: %s]", path), true
		}
		return PlaceholderDynamicURL, true

	case ExprTemplate:
		return renderTemplate(src, n), true

	case ExprCall:
		if name, ok := calleeName(src, n); ok {
			return fmt.Sprintf("[FUNC: %s()]", name), true
		}
		return PlaceholderDynamicURL, true

	case ExprConditional:
		return PlaceholderConditional, true

	case ExprBinary:
		return PlaceholderExpr, true

	default:
		return PlaceholderDynamicURL, true
	}
}

// resolveWrapped unwraps assertion and parenthesis wrappers and resolves the
// inner expression. An empty wrapper degrades to the dynamic placeholder.
func resolveWrapped(src []byte, n *sitter.Node) (string, bool) {
	inner := ast.UnwrapExpression(n)
	for inner != nil && inner.Type() == nodeParenthesized {
		inner = ast.UnwrapExpression(inner.NamedChild(0))
	}
	if inner == nil || inner == n {
		return PlaceholderDynamicURL, true
	}
	return ResolveExpression(src, inner)
}

// memberPath reconstructs a dotted path from a member-access chain.
//
// Two-level (a.b) and three-level (a.b.c) chains of plain identifiers are
// supported; deeper chains, computed access, and non-identifier components
// return false and the caller falls back to the dynamic placeholder.
func memberPath(src []byte, n *sitter.Node) (string, bool) {
	property := n.ChildByFieldName("property")
	object := n.ChildByFieldName("object")
	if property == nil || object == nil || property.Type() != nodePropertyIdent {
		return "", false
	}

	switch object.Type() {
	case nodeIdentifier:
		return ast.NodeText(src, object) + "." + ast.NodeText(src, property), true

	case nodeMemberExpression:
		innerObject := object.ChildByFieldName("object")
		innerProperty := object.ChildByFieldName("property")
		if innerObject == nil || innerProperty == nil {
			return "", false
		}
		if innerObject.Type() != nodeIdentifier || innerProperty.Type() != nodePropertyIdent {
			return "", false
		}
		return ast.NodeText(src, innerObject) + "." +
			ast.NodeText(src, innerProperty) + "." +
			ast.NodeText(src, property), true
	}
	return "", false
}

// renderTemplate flattens a template string, keeping literal text segments
// in source order and replacing each substitution with [EXPR]. Lossy by
// design: substituted values are not resolved.
func renderTemplate(src []byte, n *sitter.Node) string {
	start := int(n.StartByte())
	end := int(n.EndByte())
	if start >= end || end > len(src) {
		return ""
	}

	var b strings.Builder
	// Skip the opening backtick; text between substitutions is sliced
	// directly from source so escape sequences pass through as written.
	cursor := start + 1

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() != nodeTemplateSub {
			continue
		}
		subStart := int(child.StartByte())
		subEnd := int(child.EndByte())
		if subStart > cursor && subStart <= len(src) {
			b.Write(src[cursor:subStart])
		}
		b.WriteString(PlaceholderExpr)
		cursor = subEnd
	}

	// Trailing text up to the closing backtick.
	if cursor < end-1 {
		b.Write(src[cursor : end-1])
	}
	return b.String()
}

// calleeName recovers a printable name for a call expression's callee.
//
// A bare identifier yields the identifier; a one-level member callee yields
// obj.method; a deeper member chain degrades to the final property name.
// Returns false when no name is recoverable.
func calleeName(src []byte, n *sitter.Node) (string, bool) {
	callee := ast.UnwrapExpression(n.ChildByFieldName("function"))
	if callee == nil {
		return "", false
	}

	switch callee.Type() {
	case nodeIdentifier:
		return ast.NodeText(src, callee), true

	case nodeMemberExpression:
		property := callee.ChildByFieldName("property")
		if property == nil || property.Type() != nodePropertyIdent {
			return "", false
		}
		object := callee.ChildByFieldName("object")
		if object != nil && object.Type() == nodeIdentifier {
			return ast.NodeText(src, object) + "." + ast.NodeText(src, property), true
		}
		return ast.NodeText(src, property), true
	}
	return "", false
}
