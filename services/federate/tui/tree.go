// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui renders the federation workspace as an interactive tree:
// configs, their remotes, exposed modules, and shared dependencies, with a
// binding flow for attaching remotes to local project folders.
//
// # Thread Safety
//
// TUI components are designed for single-threaded use within the bubbletea
// event loop. Do not access TUI state from multiple goroutines.
package tui

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// nodeKind classifies a tree node.
type nodeKind int

const (
	kindWorkspace nodeKind = iota
	kindConfig
	kindSection
	kindRemote
	kindExpose
	kindShared
)

// treeNode is one row of the workspace tree.
type treeNode struct {
	kind     nodeKind
	label    string
	detail   string
	badge    string
	dynamic  bool
	expanded bool
	children []*treeNode

	// remoteName is set on remote nodes for the binding flow.
	remoteName string
}

// buildTree shapes extracted configs into the workspace tree. Section
// nodes start expanded so a fresh view shows everything one level deep.
func buildTree(root string, configs []federation.Config) *treeNode {
	workspace := &treeNode{
		kind:     kindWorkspace,
		label:    root,
		expanded: true,
	}

	for _, cfg := range configs {
		name := cfg.Name
		if name == "" {
			name = "(unnamed)"
		}
		configNode := &treeNode{
			kind:     kindConfig,
			label:    name,
			detail:   cfg.SourceFilePath,
			badge:    string(cfg.Dialect),
			expanded: true,
		}

		if len(cfg.Remotes) > 0 {
			section := &treeNode{
				kind:     kindSection,
				label:    fmt.Sprintf("remotes (%d)", len(cfg.Remotes)),
				expanded: true,
			}
			for _, remote := range cfg.Remotes {
				node := &treeNode{
					kind:       kindRemote,
					label:      remote.Name,
					detail:     remote.ResolvedURLExpression,
					dynamic:    isDynamicValue(remote.ResolvedURLExpression),
					remoteName: remote.Name,
				}
				if remote.LocalProjectFolder != "" {
					node.badge = "bound"
				}
				section.children = append(section.children, node)
			}
			configNode.children = append(configNode.children, section)
		}

		if len(cfg.Exposes) > 0 {
			section := &treeNode{
				kind:     kindSection,
				label:    fmt.Sprintf("exposes (%d)", len(cfg.Exposes)),
				expanded: true,
			}
			for _, expose := range cfg.Exposes {
				section.children = append(section.children, &treeNode{
					kind:   kindExpose,
					label:  expose.ExposedName,
					detail: expose.ModulePath,
				})
			}
			configNode.children = append(configNode.children, section)
		}

		if len(cfg.Shared) > 0 {
			section := &treeNode{
				kind:     kindSection,
				label:    fmt.Sprintf("shared (%d)", len(cfg.Shared)),
				expanded: true,
			}
			for _, shared := range cfg.Shared {
				section.children = append(section.children, &treeNode{
					kind:    kindShared,
					label:   shared.Name,
					detail:  sharedDetail(shared),
					dynamic: shared.Name == federation.PlaceholderDynamicShared,
				})
			}
			configNode.children = append(configNode.children, section)
		}

		workspace.children = append(workspace.children, configNode)
	}
	return workspace
}

// sharedDetail summarizes a shared dependency's declared options.
func sharedDetail(ref federation.SharedDependencyRef) string {
	parts := make([]string, 0, 3)
	if ref.Version != nil {
		parts = append(parts, *ref.Version)
	} else if ref.RequiredVersion != nil {
		parts = append(parts, *ref.RequiredVersion)
	}
	if ref.Singleton != nil && *ref.Singleton {
		parts = append(parts, "singleton")
	}
	if ref.Eager != nil && *ref.Eager {
		parts = append(parts, "eager")
	}
	return strings.Join(parts, ", ")
}

// isDynamicValue reports whether a resolved expression is a placeholder
// rather than a literal URL.
func isDynamicValue(resolved string) bool {
	return strings.HasPrefix(resolved, "[") && strings.HasSuffix(resolved, "]")
}

// flatRow pairs a visible node with its indent depth.
type flatRow struct {
	node  *treeNode
	depth int
}

// flatten lists the visible rows of the tree in render order, honoring
// each node's expanded flag. The workspace root is row zero.
func flatten(root *treeNode) []flatRow {
	rows := make([]flatRow, 0, 32)
	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		rows = append(rows, flatRow{node: n, depth: depth})
		if !n.expanded {
			return
		}
		for _, child := range n.children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return rows
}

// RenderPlainTree renders the workspace tree as indented text for
// non-interactive output.
func RenderPlainTree(root string, configs []federation.Config) string {
	tree := buildTree(root, configs)
	expandAll(tree)

	var b strings.Builder
	for _, row := range flatten(tree) {
		b.WriteString(strings.Repeat("  ", row.depth))
		b.WriteString(row.node.label)
		if row.node.badge != "" {
			b.WriteString(" [" + row.node.badge + "]")
		}
		if row.node.detail != "" {
			b.WriteString(" -> " + row.node.detail)
		}
		if row.node.dynamic {
			b.WriteString(" (dynamic)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// expandAll marks every node expanded.
func expandAll(n *treeNode) {
	n.expanded = true
	for _, child := range n.children {
		expandAll(child)
	}
}
