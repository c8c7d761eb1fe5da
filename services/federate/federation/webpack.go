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

// webpackPluginName is the constructor the webpack matcher looks for.
const webpackPluginName = "ModuleFederationPlugin"

// WebpackMatcher recognizes the webpack plugin dialect:
//
//	new ModuleFederationPlugin({ name: 'host', remotes: {...} })
//
// The constructor may be a bare identifier or the final property of a
// member access (webpack.container.ModuleFederationPlugin). When a file
// instantiates the plugin more than once, results accumulate into a single
// Config: remotes, exposes, and shared append in source order, and a later
// name overwrites an earlier one.
type WebpackMatcher struct{}

// NewWebpackMatcher creates a WebpackMatcher.
func NewWebpackMatcher() *WebpackMatcher {
	return &WebpackMatcher{}
}

// Dialect returns DialectWebpack.
func (m *WebpackMatcher) Dialect() Dialect {
	return DialectWebpack
}

// Match extracts federation configuration from every plugin instantiation
// in the tree. No instantiation found yields an empty Config.
func (m *WebpackMatcher) Match(result *ast.ParseResult) Config {
	cfg := NewConfig(DialectWebpack)
	if result == nil {
		return cfg
	}
	src := result.Content

	ast.Walk(result.Root(), func(n *sitter.Node) bool {
		if n.Type() != nodeNewExpression {
			return true
		}
		ctor := ast.UnwrapExpression(n.ChildByFieldName("constructor"))
		if !isFederationConstructor(src, ctor) {
			return true
		}
		options := unwrapValue(ast.FirstNamedArgument(n))
		extractOptions(src, options, &cfg)
		return true
	})

	stampOwner(&cfg)
	return cfg
}

// isFederationConstructor matches the plugin constructor by name: a bare
// identifier, or a member access whose final property carries the name.
func isFederationConstructor(src []byte, ctor *sitter.Node) bool {
	if ctor == nil {
		return false
	}
	switch ctor.Type() {
	case nodeIdentifier:
		return ast.NodeText(src, ctor) == webpackPluginName
	case nodeMemberExpression:
		property := ctor.ChildByFieldName("property")
		return property != nil && ast.NodeText(src, property) == webpackPluginName
	}
	return false
}

// Compile-time interface check.
var _ Matcher = (*WebpackMatcher)(nil)
