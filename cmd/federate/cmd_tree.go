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

	"github.com/AleutianAI/AleutianFederate/services/federate/tui"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the workspace federation tree",
	Long: `Scans the workspace and shows configs, remotes, exposed modules, and
shared dependencies as a tree. On a terminal the tree is interactive and
remotes can be bound to local project folders; piped output falls back to
plain text.`,
	RunE: runTreeCommand,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTreeCommand(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	sc, sidecar, err := buildPipeline(root)
	if err != nil {
		return err
	}

	result, err := sc.Scan(cmd.Context(), root)
	if err != nil {
		return err
	}

	bindings, err := tui.RunTree(root, result.Configs, sidecar, os.Stdout)
	if err != nil {
		return err
	}
	if len(bindings) > 0 {
		fmt.Printf("Bound %d remote(s); run federate scan to refresh annotations.\n", len(bindings))
	}
	return nil
}
