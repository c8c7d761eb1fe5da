// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFederate/services/federate/graph"
)

var (
	flagGraphFormat   string
	flagGraphShared   bool
	flagGraphOut      string
	flagGraphMaxNodes int
	flagGraphDir      string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the workspace dependency graph",
	Long: `Scans the workspace and renders the federation dependency graph.
Mermaid and DOT output suit docs and CI; d3 emits the node/link JSON and
html a self-contained interactive page.`,
	RunE: runGraphCommand,
}

func init() {
	graphCmd.Flags().StringVar(&flagGraphFormat, "format", "mermaid", "Output format (mermaid, dot, d3, html)")
	graphCmd.Flags().BoolVar(&flagGraphShared, "shared", false, "Include shared-dependency nodes")
	graphCmd.Flags().StringVarP(&flagGraphOut, "output", "o", "", "Write output to a file instead of stdout")
	graphCmd.Flags().IntVar(&flagGraphMaxNodes, "max-nodes", 0, "Limit the number of graph nodes (0 uses the default)")
	graphCmd.Flags().StringVar(&flagGraphDir, "direction", "", "Flowchart direction (TB, LR, BT, RL)")
	rootCmd.AddCommand(graphCmd)
}

func runGraphCommand(cmd *cobra.Command, args []string) error {
	format := graph.OutputFormat(flagGraphFormat)
	switch format {
	case graph.FormatMermaid, graph.FormatDOT, graph.FormatD3, graph.FormatHTML:
	default:
		return fmt.Errorf("unknown graph format %q (want mermaid, dot, d3, or html)", flagGraphFormat)
	}

	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	sc, _, err := buildPipeline(root)
	if err != nil {
		return err
	}
	result, err := sc.Scan(cmd.Context(), root)
	if err != nil {
		return err
	}

	opts := graph.DefaultGraphOptions()
	opts.IncludeShared = flagGraphShared
	if flagGraphMaxNodes > 0 {
		opts.MaxNodes = flagGraphMaxNodes
	}
	if flagGraphDir != "" {
		opts.Direction = flagGraphDir
	}

	output, err := graph.NewGenerator(&opts).Generate(cmd.Context(), result.Configs, format)
	if err != nil {
		return err
	}

	if flagGraphOut != "" {
		if err := os.WriteFile(flagGraphOut, []byte(output), 0o644); err != nil {
			return fmt.Errorf("write graph output: %w", err)
		}
		fmt.Printf("Wrote %s graph to %s\n", format, flagGraphOut)
		return nil
	}
	fmt.Println(output)
	return nil
}
