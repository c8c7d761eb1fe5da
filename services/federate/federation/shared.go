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

// Shared-dependency option keys recognized inside a per-dependency config
// object. Boolean keys require boolean literals, string keys require string
// literals; any other shape under these names is ignored.
const (
	sharedKeySingleton       = "singleton"
	sharedKeyEager           = "eager"
	sharedKeyStrictVersion   = "strictVersion"
	sharedKeyVersion         = "version"
	sharedKeyRequiredVersion = "requiredVersion"
)

// ExtractShared interprets the value bound to a `shared` configuration key.
//
// # Description
//
// Three source shapes are understood:
//
//	shared: ['react', 'react-dom']             array of names
//	shared: { react: { singleton: true } }     object map with flags
//	shared: shareAll({...})                    dynamic helper call
//
// The array form yields one record per string-literal element; non-literal
// elements are skipped. The object form yields one record per
// statically-named property, with the five recognized option keys copied
// when their literal type matches. The call form yields a single
// PlaceholderDynamicShared record: dependencies are shared but cannot be
// enumerated statically. Absent or any other shape yields an empty list.
//
// Never returns an error and never panics; unrecognized structure inside a
// recognized shape is dropped silently.
func ExtractShared(src []byte, n *sitter.Node) []SharedDependencyRef {
	shared := make([]SharedDependencyRef, 0)

	n = ast.UnwrapExpression(n)
	if n == nil {
		return shared
	}

	switch n.Type() {
	case nodeArray:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			element := ast.UnwrapExpression(n.NamedChild(i))
			if name, ok := ast.StringLiteralValue(src, element); ok {
				shared = append(shared, SharedDependencyRef{Name: name})
			}
		}

	case nodeObject:
		for _, prop := range objectPairs(n) {
			name, ok := staticPropertyKey(src, prop.key)
			if !ok {
				continue
			}
			ref := SharedDependencyRef{Name: name}
			if value := ast.UnwrapExpression(prop.value); value != nil && value.Type() == nodeObject {
				populateSharedOptions(src, value, &ref)
			}
			shared = append(shared, ref)
		}

	case nodeCallExpression:
		shared = append(shared, SharedDependencyRef{Name: PlaceholderDynamicShared})
	}

	return shared
}

// populateSharedOptions scans a per-dependency config object for the five
// recognized option keys and copies literal values of the expected type.
func populateSharedOptions(src []byte, obj *sitter.Node, ref *SharedDependencyRef) {
	for _, prop := range objectPairs(obj) {
		key, ok := staticPropertyKey(src, prop.key)
		if !ok {
			continue
		}
		value := ast.UnwrapExpression(prop.value)
		if value == nil {
			continue
		}

		switch key {
		case sharedKeySingleton:
			if b, ok := booleanLiteral(value); ok {
				ref.Singleton = &b
			}
		case sharedKeyEager:
			if b, ok := booleanLiteral(value); ok {
				ref.Eager = &b
			}
		case sharedKeyStrictVersion:
			if b, ok := booleanLiteral(value); ok {
				ref.StrictVersion = &b
			}
		case sharedKeyVersion:
			if s, ok := ast.StringLiteralValue(src, value); ok {
				ref.Version = &s
			}
		case sharedKeyRequiredVersion:
			if s, ok := ast.StringLiteralValue(src, value); ok {
				ref.RequiredVersion = &s
			}
		}
	}
}

// booleanLiteral reads a true/false literal node.
func booleanLiteral(n *sitter.Node) (bool, bool) {
	switch n.Type() {
	case nodeTrue:
		return true, true
	case nodeFalse:
		return false, true
	}
	return false, false
}
