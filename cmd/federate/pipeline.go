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
	"path/filepath"

	"github.com/AleutianAI/AleutianFederate/services/federate/config"
	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
	"github.com/AleutianAI/AleutianFederate/services/federate/scanner"
	"github.com/AleutianAI/AleutianFederate/services/federate/snapshot"
	"github.com/AleutianAI/AleutianFederate/services/federate/store"
	"github.com/AleutianAI/AleutianFederate/services/federate/workspace"
)

// buildPipeline assembles the scan pipeline for a workspace root. The
// sidecar store is loaded so confirmed bindings overlay extraction.
func buildPipeline(root string, opts ...scanner.ScannerOption) (*scanner.Scanner, *store.Store, error) {
	registry, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load dialect registry: %w", err)
	}
	discoverer, err := workspace.NewDiscoverer(registry)
	if err != nil {
		return nil, nil, fmt.Errorf("create discoverer: %w", err)
	}
	detector, err := workspace.NewDetector(0)
	if err != nil {
		return nil, nil, fmt.Errorf("create detector: %w", err)
	}

	sidecar := store.NewStore(root)
	if err := sidecar.Load(); err != nil {
		return nil, nil, fmt.Errorf("load sidecar: %w", err)
	}

	extractor := federation.NewExtractor(
		federation.WithLegacyViteMatch(registry.LegacyViteMatch),
		federation.WithConcurrency(registry.ScanConcurrency),
	)
	sc := scanner.NewScanner(discoverer, extractor, detector, sidecar, opts...)
	return sc, sidecar, nil
}

// snapshotDir is where the CLI keeps its scan history.
func snapshotDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian-federate", "snapshots"), nil
}

// openSnapshots opens the CLI's snapshot database. The caller must Close
// the returned DB.
func openSnapshots() (*snapshot.DB, *snapshot.Store, error) {
	dir, err := snapshotDir()
	if err != nil {
		return nil, nil, err
	}
	db, err := snapshot.Open(snapshot.DefaultConfig(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return db, snapshot.NewStore(db), nil
}
