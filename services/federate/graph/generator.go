// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph renders extracted federation configs as dependency graphs.
//
// Nodes are federation containers and unbound remotes; edges are
// consumption (host → remote). Shared libraries render as styled nodes
// when requested. All rendering is local; no external services.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// OutputFormat specifies the graph output format.
type OutputFormat string

const (
	FormatMermaid OutputFormat = "mermaid"
	FormatDOT     OutputFormat = "dot"
	FormatD3      OutputFormat = "d3"
	FormatHTML    OutputFormat = "html"
)

// Generator renders dependency graphs from federation configs.
//
// # Thread Safety
//
// Safe for concurrent use; options are fixed at construction.
type Generator struct {
	options GraphOptions
}

// GraphOptions configures graph generation.
type GraphOptions struct {
	// MaxNodes limits the number of nodes in the output. Default: 100.
	MaxNodes int

	// Direction is the flowchart direction (TB, LR, BT, RL). Default: TB.
	Direction string

	// IncludeShared adds shared-dependency nodes.
	IncludeShared bool

	// HighlightConflicts styles shared dependencies with version or
	// singleton conflicts.
	HighlightConflicts bool
}

// DefaultGraphOptions returns sensible defaults.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes:           100,
		Direction:          "TB",
		IncludeShared:      false,
		HighlightConflicts: true,
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts *GraphOptions) *Generator {
	if opts == nil {
		defaults := DefaultGraphOptions()
		opts = &defaults
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 100
	}
	if opts.Direction == "" {
		opts.Direction = "TB"
	}
	return &Generator{options: *opts}
}

// node is one graph node.
type node struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Kind    string `json:"kind"` // container | remote | shared
	Dialect string `json:"dialect,omitempty"`
	Dynamic bool   `json:"dynamic,omitempty"`
	// Conflict marks shared nodes involved in a version conflict.
	Conflict bool `json:"conflict,omitempty"`
}

// link is one directed edge.
type link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"` // consumes | shares
}

// model is the flattened graph, deterministic for a given config set.
type model struct {
	Nodes     []node `json:"nodes"`
	Links     []link `json:"links"`
	Truncated bool   `json:"truncated"`
}

// Generate renders configs in the requested format.
func (g *Generator) Generate(ctx context.Context, configs []federation.Config, format OutputFormat) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}

	m := g.buildModel(configs)

	switch format {
	case FormatMermaid:
		return g.renderMermaid(m), nil
	case FormatDOT:
		return g.renderDOT(m), nil
	case FormatD3:
		return renderD3JSON(m)
	case FormatHTML:
		d3, err := renderD3JSON(m)
		if err != nil {
			return "", err
		}
		return renderHTML(d3), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// buildModel flattens configs into nodes and links.
//
// Container nodes come first, then remotes that no container name claims,
// then shared dependencies when included. Insertion stops at MaxNodes and
// sets Truncated.
func (g *Generator) buildModel(configs []federation.Config) model {
	m := model{Nodes: make([]node, 0), Links: make([]link, 0)}
	seen := make(map[string]bool)

	addNode := func(n node) bool {
		if seen[n.ID] {
			return true
		}
		if len(m.Nodes) >= g.options.MaxNodes {
			m.Truncated = true
			return false
		}
		seen[n.ID] = true
		m.Nodes = append(m.Nodes, n)
		return true
	}

	// Containers first so remote nodes can reuse them by name.
	for _, cfg := range configs {
		name := cfg.Name
		if name == "" {
			name = "(unnamed)"
		}
		addNode(node{
			ID:      nodeID("c", name),
			Label:   name,
			Kind:    "container",
			Dialect: string(cfg.Dialect),
		})
	}

	containerID := func(name string) (string, bool) {
		id := nodeID("c", name)
		return id, seen[id]
	}

	for _, cfg := range configs {
		hostName := cfg.Name
		if hostName == "" {
			hostName = "(unnamed)"
		}
		hostID := nodeID("c", hostName)

		for _, remote := range cfg.Remotes {
			targetID, isContainer := containerID(remote.Name)
			if !isContainer {
				targetID = nodeID("r", remote.Name)
				if !addNode(node{
					ID:      targetID,
					Label:   remote.Name,
					Kind:    "remote",
					Dynamic: isDynamicValue(remote.ResolvedURLExpression),
				}) {
					continue
				}
			}
			m.Links = append(m.Links, link{Source: hostID, Target: targetID, Kind: "consumes"})
		}
	}

	if g.options.IncludeShared {
		conflicted := make(map[string]bool)
		if g.options.HighlightConflicts {
			for _, conflict := range FindConflicts(configs) {
				conflicted[conflict.Name] = true
			}
		}

		for _, cfg := range configs {
			hostName := cfg.Name
			if hostName == "" {
				hostName = "(unnamed)"
			}
			hostID := nodeID("c", hostName)

			for _, shared := range cfg.Shared {
				sharedID := nodeID("s", shared.Name)
				if !addNode(node{
					ID:       sharedID,
					Label:    shared.Name,
					Kind:     "shared",
					Dynamic:  shared.Name == federation.PlaceholderDynamicShared,
					Conflict: conflicted[shared.Name],
				}) {
					continue
				}
				m.Links = append(m.Links, link{Source: hostID, Target: sharedID, Kind: "shares"})
			}
		}
	}

	return m
}

// renderMermaid writes a Mermaid flowchart.
func (g *Generator) renderMermaid(m model) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("flowchart %s\n", g.options.Direction))

	for _, n := range m.Nodes {
		label := escapeMermaidLabel(n.Label)
		switch n.Kind {
		case "container":
			sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]:::container\n", n.ID, label))
		case "remote":
			class := "remote"
			if n.Dynamic {
				class = "dynamic"
			}
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]:::%s\n", n.ID, label, class))
		case "shared":
			class := "shared"
			if n.Conflict {
				class = "conflict"
			}
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"]):::%s\n", n.ID, label, class))
		}
	}

	for _, l := range m.Links {
		if l.Kind == "shares" {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", l.Source, l.Target))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", l.Source, l.Target))
		}
	}

	if m.Truncated {
		sb.WriteString(fmt.Sprintf("    truncated[\"... truncated at %d nodes\"]:::dynamic\n", g.options.MaxNodes))
	}

	sb.WriteString("    classDef container fill:#4b7bec,stroke:#333,stroke-width:2px,color:#fff\n")
	sb.WriteString("    classDef remote fill:#26de81,stroke:#333\n")
	sb.WriteString("    classDef dynamic fill:#fed330,stroke:#333,stroke-dasharray: 5 5\n")
	sb.WriteString("    classDef shared fill:#a55eea,stroke:#333,color:#fff\n")
	sb.WriteString("    classDef conflict fill:#fc5c65,stroke:#333,stroke-width:2px,color:#fff\n")
	return sb.String()
}

// renderDOT writes a Graphviz digraph.
func (g *Generator) renderDOT(m model) string {
	var sb strings.Builder
	sb.WriteString("digraph federation {\n")
	sb.WriteString(fmt.Sprintf("    rankdir=%s;\n", g.options.Direction))
	sb.WriteString("    node [fontname=\"Helvetica\"];\n")

	for _, n := range m.Nodes {
		attrs := ""
		switch n.Kind {
		case "container":
			attrs = "shape=box, style=filled, fillcolor=\"#4b7bec\", fontcolor=white"
		case "remote":
			attrs = "shape=box, style=filled, fillcolor=\"#26de81\""
			if n.Dynamic {
				attrs = "shape=box, style=\"filled,dashed\", fillcolor=\"#fed330\""
			}
		case "shared":
			attrs = "shape=ellipse, style=filled, fillcolor=\"#a55eea\", fontcolor=white"
			if n.Conflict {
				attrs = "shape=ellipse, style=filled, fillcolor=\"#fc5c65\", fontcolor=white"
			}
		}
		sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", %s];\n", n.ID, escapeDOTLabel(n.Label), attrs))
	}

	for _, l := range m.Links {
		style := ""
		if l.Kind == "shares" {
			style = " [style=dashed]"
		}
		sb.WriteString(fmt.Sprintf("    %s -> %s%s;\n", l.Source, l.Target, style))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// renderD3JSON writes the model as D3 force-layout JSON.
func renderD3JSON(m model) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode d3 model: %w", err)
	}
	return string(data), nil
}

// renderHTML embeds the D3 JSON in a self-contained page.
func renderHTML(d3JSON string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>Federation Dependency Graph</title>\n")
	sb.WriteString("<script src=\"https://d3js.org/d3.v7.min.js\"></script>\n")
	sb.WriteString("<style>\n")
	sb.WriteString("  body { font-family: Helvetica, sans-serif; margin: 0; }\n")
	sb.WriteString("  .node text { font-size: 12px; }\n")
	sb.WriteString("  .link { stroke: #999; stroke-opacity: 0.6; }\n")
	sb.WriteString("  .link.shares { stroke-dasharray: 5 5; }\n")
	sb.WriteString("</style>\n</head>\n<body>\n")
	sb.WriteString("<svg width=\"1200\" height=\"800\"></svg>\n")
	sb.WriteString("<script>\nconst graph = ")
	sb.WriteString(d3JSON)
	sb.WriteString(";\n")
	sb.WriteString(`
const color = { container: "#4b7bec", remote: "#26de81", shared: "#a55eea" };
const svg = d3.select("svg");
const width = +svg.attr("width"), height = +svg.attr("height");

const simulation = d3.forceSimulation(graph.nodes)
    .force("link", d3.forceLink(graph.links).id(d => d.id).distance(120))
    .force("charge", d3.forceManyBody().strength(-300))
    .force("center", d3.forceCenter(width / 2, height / 2));

const link = svg.append("g").selectAll("line")
    .data(graph.links).join("line")
    .attr("class", d => "link " + d.kind);

const nodeG = svg.append("g").selectAll("g")
    .data(graph.nodes).join("g").attr("class", "node");

nodeG.append("circle")
    .attr("r", d => d.kind === "container" ? 14 : 9)
    .attr("fill", d => d.conflict ? "#fc5c65" : d.dynamic ? "#fed330" : color[d.kind])
    .attr("stroke", "#333");

nodeG.append("text").attr("dx", 16).attr("dy", 4).text(d => d.label);

simulation.on("tick", () => {
  link.attr("x1", d => d.source.x).attr("y1", d => d.source.y)
      .attr("x2", d => d.target.x).attr("y2", d => d.target.y);
  nodeG.attr("transform", d => "translate(" + d.x + "," + d.y + ")");
});
</script>
</body>
</html>
`)
	return sb.String()
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// nodeID builds a stable, sanitized identifier with a kind prefix so a
// container and a shared dependency with the same name never collide.
func nodeID(prefix, name string) string {
	return prefix + "_" + unsafeIDChars.ReplaceAllString(name, "_")
}

// escapeMermaidLabel escapes characters that break Mermaid labels.
func escapeMermaidLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "[", "&#91;")
	s = strings.ReplaceAll(s, "]", "&#93;")
	return s
}

// escapeDOTLabel escapes quotes and backslashes for DOT labels.
func escapeDOTLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}

// isDynamicValue reports whether a resolved remote value is a placeholder
// rather than a concrete URL.
func isDynamicValue(resolved string) bool {
	return strings.HasPrefix(resolved, "[") && strings.HasSuffix(resolved, "]")
}

// SortedRemoteNames returns the distinct remote names across configs,
// sorted. Used by HTML tooling and tests for stable output.
func SortedRemoteNames(configs []federation.Config) []string {
	set := make(map[string]struct{})
	for _, cfg := range configs {
		for _, remote := range cfg.Remotes {
			set[remote.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
