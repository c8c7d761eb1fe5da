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
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/AleutianFederate/services/federate/ast"
)

// parseJS parses inline JavaScript source and releases the tree when the
// test finishes.
func parseJS(t *testing.T, src string) *ast.ParseResult {
	t.Helper()
	result, err := ast.NewJavaScriptParser().Parse(context.Background(), []byte(src), "test.js")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	t.Cleanup(result.Close)
	return result
}

// parseTS parses inline TypeScript source.
func parseTS(t *testing.T, src string) *ast.ParseResult {
	t.Helper()
	result, err := ast.NewTypeScriptParser().Parse(context.Background(), []byte(src), "test.ts")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	t.Cleanup(result.Close)
	return result
}

// valueExpression extracts the right-hand side of `const x = <expr>;` from
// parsed source, so resolver tests can target a single expression node.
func valueExpression(t *testing.T, result *ast.ParseResult) *sitter.Node {
	t.Helper()
	var value *sitter.Node
	ast.Walk(result.Root(), func(n *sitter.Node) bool {
		if n.Type() == "variable_declarator" {
			value = n.ChildByFieldName("value")
			return false
		}
		return true
	})
	if value == nil {
		t.Fatalf("no variable declarator found in %q", string(result.Content))
	}
	return value
}
