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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFederate/services/federate/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch federation configs and print change events",
	Long: `Scans the workspace once, then watches every discovered config file and
the sidecar for changes. Events print until interrupted.`,
	RunE: runWatchCommand,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
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

	paths := make([]string, 0, len(result.Configs))
	for _, cfg := range result.Configs {
		paths = append(paths, cfg.SourceFilePath)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no federation configs found under %s", root)
	}

	hub := watch.NewHub()
	defer hub.Close()

	watcher, err := watch.NewWatcher(hub, paths, sidecar.Path())
	if err != nil {
		return err
	}
	if err := watcher.Start(cmd.Context()); err != nil {
		return err
	}
	defer watcher.Stop()

	events, cancel := hub.Subscribe()
	defer cancel()

	fmt.Printf("Watching %d config file(s) under %s (ctrl-c to stop)\n", len(paths), root)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-sigs:
			return nil
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if flagJSON {
				if err := enc.Encode(event); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("%s  %s  %s\n", event.Time.Local().Format(time.TimeOnly), event.Type, event.Path)
		}
	}
}
