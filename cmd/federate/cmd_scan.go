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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFederate/services/federate/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace for module-federation configs",
	Long: `Discovers federation config files under the workspace root, extracts
their configuration without executing them, and persists the result as a
snapshot.`,
	RunE: runScanCommand,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	db, snaps, err := openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	sc, _, err := buildPipeline(root, scanner.WithSnapshotStore(snaps))
	if err != nil {
		return err
	}

	result, err := sc.Scan(cmd.Context(), root)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printScanSummary(result)
	return nil
}

// printScanSummary prints the human-readable scan report.
func printScanSummary(result *scanner.ScanResult) {
	fmt.Printf("Scan %s\n", result.ID)
	fmt.Printf("  root:       %s\n", result.Root)
	fmt.Printf("  duration:   %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  files:      %d discovered, %d parsed, %d failed\n",
		result.Stats.FilesDiscovered, result.Stats.FilesParsed, result.Stats.FilesFailed)
	fmt.Printf("  extracted:  %d remotes, %d exposes, %d shared\n",
		result.Stats.Remotes, result.Stats.Exposes, result.Stats.Shared)
	if result.Stats.Conflicts > 0 {
		fmt.Printf("  conflicts:  %d shared-dependency conflicts\n", result.Stats.Conflicts)
	}

	for _, cfg := range result.Configs {
		name := cfg.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("\n  %s [%s] %s\n", name, cfg.Dialect, cfg.SourceFilePath)
		for _, remote := range cfg.Remotes {
			fmt.Printf("    remote %s -> %s\n", remote.Name, remote.ResolvedURLExpression)
		}
		for _, expose := range cfg.Exposes {
			fmt.Printf("    expose %s -> %s\n", expose.ExposedName, expose.ModulePath)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, warning := range result.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}
}
