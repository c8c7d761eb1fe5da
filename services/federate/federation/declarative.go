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
	"github.com/AleutianAI/AleutianFederate/services/federate/ast"
)

// declarativeFunctionName is the config-factory call the declarative
// matcher looks for.
const declarativeFunctionName = "createModuleFederationConfig"

// DeclarativeMatcher recognizes the declarative config-function dialect:
//
//	export default createModuleFederationConfig({ name: 'shell', ... })
//
// CJS files assigning the call to module.exports match as well. Like the
// webpack matcher, results from multiple matching exports accumulate into
// one Config.
type DeclarativeMatcher struct{}

// NewDeclarativeMatcher creates a DeclarativeMatcher.
func NewDeclarativeMatcher() *DeclarativeMatcher {
	return &DeclarativeMatcher{}
}

// Dialect returns DialectDeclarative.
func (m *DeclarativeMatcher) Dialect() Dialect {
	return DialectDeclarative
}

// Match extracts federation configuration from every default-exported
// createModuleFederationConfig call in the tree.
func (m *DeclarativeMatcher) Match(result *ast.ParseResult) Config {
	cfg := NewConfig(DialectDeclarative)
	if result == nil {
		return cfg
	}
	src := result.Content

	for _, value := range defaultExportedValues(src, result.Root()) {
		if value.Type() != nodeCallExpression {
			continue
		}
		callee := ast.UnwrapExpression(value.ChildByFieldName("function"))
		if callee == nil || callee.Type() != nodeIdentifier {
			continue
		}
		if ast.NodeText(src, callee) != declarativeFunctionName {
			continue
		}
		if options := unwrapValue(ast.FirstNamedArgument(value)); options != nil && options.Type() == nodeObject {
			extractOptions(src, options, &cfg)
		}
	}

	stampOwner(&cfg)
	return cfg
}

// Compile-time interface check.
var _ Matcher = (*DeclarativeMatcher)(nil)
