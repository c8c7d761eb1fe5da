// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scanner runs full workspace scans: it discovers federation config
// files, extracts their configs, overlays sidecar bindings, annotates
// remotes with package-manager and env-file facts, and persists the result
// as a snapshot.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
	"github.com/AleutianAI/AleutianFederate/services/federate/graph"
	"github.com/AleutianAI/AleutianFederate/services/federate/snapshot"
	"github.com/AleutianAI/AleutianFederate/services/federate/store"
	"github.com/AleutianAI/AleutianFederate/services/federate/workspace"
)

// ScanResult is the outcome of one workspace scan.
type ScanResult struct {
	// ID is the scan's UUID, also the snapshot key when persisted.
	ID string `json:"id"`

	// Root is the scanned workspace root.
	Root string `json:"root"`

	// Configs are the extracted, merged, annotated federation configs.
	Configs []federation.Config `json:"configs"`

	// Stats aggregates counts across the scan.
	Stats snapshot.ScanStats `json:"stats"`

	// Warnings lists non-fatal problems (unparseable files, unreadable
	// project folders). A warning never fails the scan.
	Warnings []string `json:"warnings,omitempty"`

	// Duration is the wall-clock scan time.
	Duration time.Duration `json:"duration"`
}

// Scanner composes the scan pipeline.
//
// # Description
//
// A scan runs discovery, batch extraction, sidecar merge, package-manager
// annotation, and env-probe annotation, in that order, then optionally
// persists the result. Per-file extraction failures become warnings; only
// discovery failure or context cancellation fails the whole scan.
//
// # Thread Safety
//
// Safe for concurrent use when its collaborators are. The sidecar store
// serializes its own access.
type Scanner struct {
	discoverer *workspace.Discoverer
	extractor  *federation.Extractor
	detector   *workspace.Detector
	sidecar    *store.Store
	snapshots  *snapshot.Store
	logger     *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithSnapshotStore enables snapshot persistence for completed scans.
func WithSnapshotStore(s *snapshot.Store) ScannerOption {
	return func(sc *Scanner) {
		sc.snapshots = s
	}
}

// WithScannerLogger sets the logger.
func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(sc *Scanner) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewScanner wires a Scanner from its collaborators. The sidecar store may
// be nil when no bindings should be overlaid.
func NewScanner(
	discoverer *workspace.Discoverer,
	extractor *federation.Extractor,
	detector *workspace.Detector,
	sidecar *store.Store,
	opts ...ScannerOption,
) *Scanner {
	sc := &Scanner{
		discoverer: discoverer,
		extractor:  extractor,
		detector:   detector,
		sidecar:    sidecar,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Scan runs the full pipeline over a workspace root.
func (sc *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	started := time.Now()

	refs, err := sc.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("discover workspace %s: %w", root, err)
	}

	result := &ScanResult{
		ID:   uuid.NewString(),
		Root: root,
	}
	result.Stats.FilesDiscovered = len(refs)

	if sc.sidecar != nil {
		refs = sc.withoutIgnored(refs)
	}

	configs, failures := sc.extractor.ExtractBatch(ctx, refs)
	result.Stats.FilesParsed = len(configs)
	result.Stats.FilesFailed = len(failures)
	for _, failure := range failures {
		result.Warnings = append(result.Warnings, failure.Error())
	}

	if sc.sidecar != nil {
		sc.sidecar.Merge(configs)
	}
	sc.annotatePackageManagers(configs, result)
	sc.annotateEnvCoverage(root, configs, result)

	result.Configs = configs
	for _, cfg := range configs {
		result.Stats.Remotes += len(cfg.Remotes)
		result.Stats.Exposes += len(cfg.Exposes)
		result.Stats.Shared += len(cfg.Shared)
	}
	result.Stats.Conflicts = len(graph.FindConflicts(configs))
	result.Duration = time.Since(started)

	sc.logger.Info("workspace scan complete",
		slog.String("component", "scanner"),
		slog.String("scan_id", result.ID),
		slog.String("root", root),
		slog.Int("files", result.Stats.FilesDiscovered),
		slog.Int("configs", len(configs)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("duration", result.Duration),
	)

	if sc.snapshots != nil {
		record := snapshot.ScanRecord{
			ID:        result.ID,
			Root:      root,
			StartedAt: started.UTC(),
			Duration:  result.Duration,
			Configs:   configs,
			Stats:     result.Stats,
		}
		if err := sc.snapshots.SaveScan(ctx, record); err != nil {
			// Persistence failure degrades to a warning; the caller still
			// gets the in-memory result.
			result.Warnings = append(result.Warnings, fmt.Sprintf("persist snapshot: %v", err))
			sc.logger.Warn("snapshot persistence failed",
				slog.String("component", "scanner"),
				slog.String("scan_id", result.ID),
				slog.Any("error", err),
			)
		}
	}

	return result, nil
}

// withoutIgnored drops config files the sidecar marks ignored.
func (sc *Scanner) withoutIgnored(refs []federation.FileRef) []federation.FileRef {
	kept := refs[:0:0]
	for _, ref := range refs {
		if sc.sidecar.Ignored(ref.Path) {
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}

// annotatePackageManagers fills in manager and start command for remotes
// with a confirmed local folder. Probe failures become warnings.
func (sc *Scanner) annotatePackageManagers(configs []federation.Config, result *ScanResult) {
	if sc.detector == nil {
		return
	}
	for i := range configs {
		for j := range configs[i].Remotes {
			remote := &configs[i].Remotes[j]
			if remote.LocalProjectFolder == "" {
				continue
			}
			detection, err := sc.detector.Detect(remote.LocalProjectFolder)
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("probe %s (%s): %v", remote.Name, remote.LocalProjectFolder, err))
				continue
			}
			if remote.PackageManager == "" {
				remote.PackageManager = string(detection.Manager)
			}
			if remote.StartCommand == "" {
				remote.StartCommand = detection.StartCommand
			}
		}
	}
}

// annotateEnvCoverage checks env-placeholder remote URLs against the
// workspace's env files. Remotes referencing an undefined variable get a
// warning; covered ones are logged at debug.
func (sc *Scanner) annotateEnvCoverage(root string, configs []federation.Config, result *ScanResult) {
	probe := workspace.NewEnvProbe(root, sc.logger)
	for _, cfg := range configs {
		covered := make(map[string]bool)
		for _, name := range probe.CoveredRemotes(cfg.Remotes) {
			covered[name] = true
		}
		for _, remote := range cfg.Remotes {
			if !strings.HasPrefix(remote.ResolvedURLExpression, "[ENV: ") {
				continue
			}
			if covered[remote.Name] {
				sc.logger.Debug("env files cover remote URL",
					slog.String("component", "scanner"),
					slog.String("config", cfg.Name),
					slog.String("remote", remote.Name),
				)
				continue
			}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("remote %s in %s reads an env var not defined in workspace env files",
					remote.Name, cfg.SourceFilePath))
		}
	}
}
