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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/AleutianFederate/services/federate/ast"
)

// Entry-point names for the defineConfig dialects.
const (
	defineConfigName      = "defineConfig"
	vitePluginName        = "federation"
	rsbuildSectionKey     = "moduleFederation"
	rsbuildSectionOptions = "options"
)

// ViteMatcher recognizes the Vite plugin dialect: an exported default
// defineConfig whose plugins array contains a federation(...) call.
//
//	export default defineConfig({
//	  plugins: [federation({ name: 'host', remotes: {...} })],
//	})
//
// The config object may also be produced by an arrow function, either as an
// expression body or via the first return statement of a block body. The
// first matching plugin element wins; later elements are not inspected.
//
// Legacy mode widens the plugin match from the exact callee name to any
// callee containing the substring "federation". That heuristic can match
// unrelated helpers and exists only for older plugin forks that renamed the
// export.
type ViteMatcher struct {
	legacy bool
}

// NewViteMatcher creates a ViteMatcher. legacy enables substring matching
// of the plugin callee name.
func NewViteMatcher(legacy bool) *ViteMatcher {
	return &ViteMatcher{legacy: legacy}
}

// Dialect returns DialectVite.
func (m *ViteMatcher) Dialect() Dialect {
	return DialectVite
}

// Match extracts federation configuration from the first federation plugin
// call found in the exported config's plugins array.
func (m *ViteMatcher) Match(result *ast.ParseResult) Config {
	cfg := NewConfig(DialectVite)
	if result == nil {
		return cfg
	}
	src := result.Content

	for _, value := range defaultExportedValues(src, result.Root()) {
		configObj := resolveDefineConfigObject(src, value)
		if configObj == nil {
			continue
		}
		plugins := unwrapValue(findProperty(src, configObj, "plugins"))
		if plugins == nil || plugins.Type() != nodeArray {
			continue
		}
		if options := m.findPluginOptions(src, plugins); options != nil {
			extractOptions(src, options, &cfg)
			break
		}
	}

	stampOwner(&cfg)
	return cfg
}

// findPluginOptions scans plugin elements in order and returns the options
// object of the first federation call, nil when none matches.
func (m *ViteMatcher) findPluginOptions(src []byte, plugins *sitter.Node) *sitter.Node {
	for i := 0; i < int(plugins.NamedChildCount()); i++ {
		element := unwrapValue(plugins.NamedChild(i))
		if element == nil || element.Type() != nodeCallExpression {
			continue
		}
		callee := ast.UnwrapExpression(element.ChildByFieldName("function"))
		if callee == nil || callee.Type() != nodeIdentifier {
			continue
		}
		name := ast.NodeText(src, callee)
		if name != vitePluginName && !(m.legacy && strings.Contains(name, vitePluginName)) {
			continue
		}
		if options := unwrapValue(ast.FirstNamedArgument(element)); options != nil && options.Type() == nodeObject {
			return options
		}
	}
	return nil
}

// RsbuildMatcher recognizes the Rsbuild dialect, where the federation
// options live one level deeper in the exported config:
//
//	export default defineConfig({
//	  moduleFederation: {
//	    options: { name: 'host', remotes: {...} },
//	  },
//	})
//
// The defineConfig unwrapping is shared with the Vite matcher. The first
// matching export wins.
type RsbuildMatcher struct{}

// NewRsbuildMatcher creates an RsbuildMatcher.
func NewRsbuildMatcher() *RsbuildMatcher {
	return &RsbuildMatcher{}
}

// Dialect returns DialectRsbuild.
func (m *RsbuildMatcher) Dialect() Dialect {
	return DialectRsbuild
}

// Match extracts federation configuration from the moduleFederation.options
// section of the exported config.
func (m *RsbuildMatcher) Match(result *ast.ParseResult) Config {
	cfg := NewConfig(DialectRsbuild)
	if result == nil {
		return cfg
	}
	src := result.Content

	for _, value := range defaultExportedValues(src, result.Root()) {
		configObj := resolveDefineConfigObject(src, value)
		if configObj == nil {
			continue
		}
		section := unwrapValue(findProperty(src, configObj, rsbuildSectionKey))
		options := unwrapValue(findProperty(src, section, rsbuildSectionOptions))
		if options != nil && options.Type() == nodeObject {
			extractOptions(src, options, &cfg)
			break
		}
	}

	stampOwner(&cfg)
	return cfg
}

// resolveDefineConfigObject unwraps a default-exported defineConfig call to
// its config object literal.
//
// Three argument shapes resolve:
//
//	defineConfig({...})                           direct object
//	defineConfig(() => ({...}))                   arrow, expression body
//	defineConfig(() => { return {...} })          arrow, first return
//
// Anything else (a non-defineConfig call, a dynamic argument, an arrow
// whose first return is not an object literal) resolves to nil.
func resolveDefineConfigObject(src []byte, value *sitter.Node) *sitter.Node {
	if value == nil || value.Type() != nodeCallExpression {
		return nil
	}
	callee := ast.UnwrapExpression(value.ChildByFieldName("function"))
	if callee == nil || callee.Type() != nodeIdentifier || ast.NodeText(src, callee) != defineConfigName {
		return nil
	}

	arg := unwrapValue(ast.FirstNamedArgument(value))
	if arg == nil {
		return nil
	}

	switch arg.Type() {
	case nodeObject:
		return arg

	case nodeArrowFunction:
		body := unwrapValue(arg.ChildByFieldName("body"))
		if body == nil {
			return nil
		}
		if body.Type() == nodeObject {
			return body
		}
		if body.Type() == nodeStatementBlock {
			return firstReturnedObject(body)
		}
	}
	return nil
}

// firstReturnedObject finds the first return statement in a block and
// returns its object-literal value, nil otherwise. Only the first return is
// honored, even when it does not return an object.
func firstReturnedObject(block *sitter.Node) *sitter.Node {
	var returned *sitter.Node
	found := false

	ast.Walk(block, func(n *sitter.Node) bool {
		if found {
			return false
		}
		if n.Type() != nodeReturnStatement {
			return true
		}
		found = true
		if value := unwrapValue(n.NamedChild(0)); value != nil && value.Type() == nodeObject {
			returned = value
		}
		return false
	})

	return returned
}

// Compile-time interface checks.
var (
	_ Matcher = (*ViteMatcher)(nil)
	_ Matcher = (*RsbuildMatcher)(nil)
)
