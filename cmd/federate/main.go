// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command federate inspects module-federation workspaces: it scans build
// configs without executing them, shows the workspace tree, renders
// dependency graphs, and controls remote dev servers through the
// federated daemon.
//
// Usage:
//
//	federate scan --root ./my-workspace
//	federate tree
//	federate graph --format mermaid
//	federate remotes list
//	federate start shop
//	federate snapshots list
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFederate/pkg/logging"
)

// CLIVersion is the federate CLI version.
const CLIVersion = "0.1.0"

// Global flags.
var (
	flagRoot     string
	flagLogLevel string
	flagJSON     bool
	flagServer   string
)

var rootCmd = &cobra.Command{
	Use:   "federate",
	Short: "Inspect module-federation workspaces without executing configs",
	Long: `Federate statically extracts Module Federation configuration from
webpack, Vite, Rsbuild, and declarative config files, shows the workspace
as a tree or graph, and starts local remotes from their confirmed folders.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the federate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("federate %s\n", CLIVersion)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "Workspace root to scan")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8787", "federated daemon address for remote control commands")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger := logging.New(logging.Config{
			Level:   parseLevel(flagLogLevel),
			Service: "federate",
		})
		slog.SetDefault(logger.Slog())
	}

	rootCmd.AddCommand(versionCmd)
}

// parseLevel maps the flag value to a logging level, defaulting to warn.
func parseLevel(raw string) logging.Level {
	switch raw {
	case "debug":
		return logging.LevelDebug
	case "info":
		return logging.LevelInfo
	case "error":
		return logging.LevelError
	default:
		return logging.LevelWarn
	}
}

// workspaceRoot resolves the --root flag to an absolute path.
func workspaceRoot() (string, error) {
	abs, err := filepath.Abs(flagRoot)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root %s: %w", flagRoot, err)
	}
	return abs, nil
}
