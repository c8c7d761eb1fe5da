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
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	federate "github.com/AleutianAI/AleutianFederate/services/federate"
)

var remotesCmd = &cobra.Command{
	Use:   "remotes",
	Short: "List remotes known to the federated daemon",
	Long: `Lists every remote the daemon extracted from the workspace, with its
binding state and whether its dev server is running. Requires a running
federated daemon (see --server).`,
	RunE: runRemotesCommand,
}

var startRemoteCmd = &cobra.Command{
	Use:   "start <remote>",
	Short: "Start a remote's dev server through the federated daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemoteAction(args[0], "start")
	},
}

var stopRemoteCmd = &cobra.Command{
	Use:   "stop <remote>",
	Short: "Stop a remote's dev server through the federated daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemoteAction(args[0], "stop")
	},
}

func init() {
	rootCmd.AddCommand(remotesCmd)
	rootCmd.AddCommand(startRemoteCmd)
	rootCmd.AddCommand(stopRemoteCmd)
}

func runRemotesCommand(cmd *cobra.Command, args []string) error {
	var listing struct {
		Remotes []federate.RemoteInfo `json:"remotes"`
	}
	if err := daemonGet("/api/v1/remotes", &listing); err != nil {
		return err
	}
	remotes := listing.Remotes

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(remotes)
	}

	if len(remotes) == 0 {
		fmt.Println("No remotes found.")
		return nil
	}
	for _, remote := range remotes {
		state := "stopped"
		if remote.Running {
			state = fmt.Sprintf("running (pid %d)", remote.PID)
		}
		fmt.Printf("%s [%s]\n", remote.Name, state)
		fmt.Printf("  url:    %s\n", remote.ResolvedURLExpression)
		fmt.Printf("  owner:  %s (%s)\n", remote.OwnerConfig, remote.SourceFilePath)
		if remote.LocalProjectFolder != "" {
			fmt.Printf("  folder: %s\n", remote.LocalProjectFolder)
		}
		if remote.StartCommand != "" {
			fmt.Printf("  start:  %s", remote.StartCommand)
			if remote.PackageManager != "" {
				fmt.Printf(" (%s)", remote.PackageManager)
			}
			fmt.Println()
		}
	}
	return nil
}

func runRemoteAction(name, action string) error {
	var resp federate.RemoteActionResponse
	if err := daemonPost("/api/v1/remotes/"+name+"/"+action, &resp); err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	switch action {
	case "start":
		fmt.Printf("Started %s (pid %d) in %s\n", resp.Name, resp.Status.PID, resp.Status.Folder)
	default:
		fmt.Printf("Stopping %s (pid %d)\n", resp.Name, resp.Status.PID)
	}
	return nil
}

// daemonClient is shared by all remote-control commands.
var daemonClient = &http.Client{Timeout: 30 * time.Second}

func daemonGet(path string, out interface{}) error {
	resp, err := daemonClient.Get(flagServer + path)
	if err != nil {
		return fmt.Errorf("contact federated daemon at %s: %w", flagServer, err)
	}
	defer resp.Body.Close()
	return decodeDaemonResponse(resp, out)
}

func daemonPost(path string, out interface{}) error {
	resp, err := daemonClient.Post(flagServer+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("contact federated daemon at %s: %w", flagServer, err)
	}
	defer resp.Body.Close()
	return decodeDaemonResponse(resp, out)
}

// decodeDaemonResponse maps non-2xx responses to the daemon's error body.
func decodeDaemonResponse(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr federate.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Details != "" {
				return fmt.Errorf("daemon: %s (%s)", apiErr.Error, apiErr.Details)
			}
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
