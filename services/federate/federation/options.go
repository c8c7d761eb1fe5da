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

// Option keys inside a federation options object.
const (
	optionKeyName    = "name"
	optionKeyRemotes = "remotes"
	optionKeyExposes = "exposes"
	optionKeyShared  = "shared"
)

// objectPair is one key/value property of an object literal.
type objectPair struct {
	key   *sitter.Node
	value *sitter.Node
}

// objectPairs collects the pair properties of an object literal in source
// order. Spread elements, methods, and shorthand properties carry no
// extractable key/value and are skipped.
func objectPairs(obj *sitter.Node) []objectPair {
	if obj == nil {
		return nil
	}
	pairs := make([]objectPair, 0, obj.NamedChildCount())
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		child := obj.NamedChild(i)
		if child == nil || child.Type() != nodePair {
			continue
		}
		pairs = append(pairs, objectPair{
			key:   child.ChildByFieldName("key"),
			value: child.ChildByFieldName("value"),
		})
	}
	return pairs
}

// staticPropertyKey resolves an object key that is a plain identifier or a
// string literal. Computed keys and numbers return false.
func staticPropertyKey(src []byte, key *sitter.Node) (string, bool) {
	if key == nil {
		return "", false
	}
	switch key.Type() {
	case nodePropertyIdent, nodeIdentifier, nodeShorthandProperty:
		return ast.NodeText(src, key), true
	case nodeString:
		return ast.StringLiteralValue(src, key)
	}
	return "", false
}

// findProperty returns the value bound to the named key in an object
// literal, nil when the key is absent or the node is not an object.
func findProperty(src []byte, obj *sitter.Node, name string) *sitter.Node {
	if obj == nil || obj.Type() != nodeObject {
		return nil
	}
	for _, prop := range objectPairs(obj) {
		if key, ok := staticPropertyKey(src, prop.key); ok && key == name {
			return prop.value
		}
	}
	return nil
}

// extractOptions pulls name, remotes, exposes, and shared out of a matched
// federation options object and appends them to cfg.
//
// # Description
//
// The same extraction serves all four dialects once the options object is
// located. Name is taken only from a string literal. Remote values go
// through ResolveExpression, so dynamic URLs become tagged placeholders
// rather than being dropped. Expose values must be string literals;
// non-literal expose targets are dropped silently. Appending (rather than
// replacing) lets a matcher accumulate across several entry points in one
// file; a later name overwrites an earlier one.
func extractOptions(src []byte, options *sitter.Node, cfg *Config) {
	if options == nil || options.Type() != nodeObject {
		return
	}

	if nameValue := ast.UnwrapExpression(findProperty(src, options, optionKeyName)); nameValue != nil {
		if name, ok := ast.StringLiteralValue(src, nameValue); ok {
			cfg.Name = name
		}
	}

	if remotes := ast.UnwrapExpression(findProperty(src, options, optionKeyRemotes)); remotes != nil && remotes.Type() == nodeObject {
		for _, prop := range objectPairs(remotes) {
			name, ok := staticPropertyKey(src, prop.key)
			if !ok {
				continue
			}
			resolved, ok := ResolveExpression(src, prop.value)
			if !ok {
				continue
			}
			cfg.Remotes = append(cfg.Remotes, RemoteRef{
				Name:                  name,
				ResolvedURLExpression: resolved,
			})
		}
	}

	if exposes := ast.UnwrapExpression(findProperty(src, options, optionKeyExposes)); exposes != nil && exposes.Type() == nodeObject {
		for _, prop := range objectPairs(exposes) {
			name, ok := staticPropertyKey(src, prop.key)
			if !ok {
				continue
			}
			value := ast.UnwrapExpression(prop.value)
			path, ok := ast.StringLiteralValue(src, value)
			if !ok {
				continue
			}
			cfg.Exposes = append(cfg.Exposes, ExposedModuleRef{
				ExposedName: name,
				ModulePath:  path,
			})
		}
	}

	if shared := findProperty(src, options, optionKeyShared); shared != nil {
		cfg.Shared = append(cfg.Shared, ExtractShared(src, shared)...)
	}
}

// stampOwner back-references every expose to the config's final name. Run
// after a matcher finishes so a later name overwrite still reaches exposes
// extracted earlier.
func stampOwner(cfg *Config) {
	for i := range cfg.Exposes {
		cfg.Exposes[i].OwnerConfigName = cfg.Name
	}
}
