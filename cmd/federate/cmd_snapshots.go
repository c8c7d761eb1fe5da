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
)

var flagSnapshotsLimit int

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage persisted scan snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted scans, newest first",
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show one persisted scan as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>",
	Short: "Delete one persisted scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsDelete,
}

func init() {
	snapshotsListCmd.Flags().IntVar(&flagSnapshotsLimit, "limit", 20, "Maximum number of scans to list")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	db, snaps, err := openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := snaps.ListScans(cmd.Context(), flagSnapshotsLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No snapshots recorded. Run federate scan first.")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s  %s\n", record.ID, record.StartedAt.Local().Format(time.RFC3339))
		fmt.Printf("  root: %s  configs: %d  remotes: %d  warnings on %d failed file(s)\n",
			record.Root, len(record.Configs), record.Stats.Remotes, record.Stats.FilesFailed)
	}
	return nil
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	db, snaps, err := openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	record, err := snaps.GetScan(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func runSnapshotsDelete(cmd *cobra.Command, args []string) error {
	db, snaps, err := openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := snaps.DeleteScan(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted scan %s\n", args[0])
	return nil
}
