// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package federate exposes module-federation workspace inspection over
// HTTP and WebSocket: scans, snapshots, dependency graphs, and remote
// dev-server control.
package federate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
	"github.com/AleutianAI/AleutianFederate/services/federate/graph"
	"github.com/AleutianAI/AleutianFederate/services/federate/runner"
	"github.com/AleutianAI/AleutianFederate/services/federate/scanner"
	"github.com/AleutianAI/AleutianFederate/services/federate/snapshot"
	"github.com/AleutianAI/AleutianFederate/services/federate/watch"
)

// ServiceVersion is the federate service version.
const ServiceVersion = "0.1.0"

// Service errors.
var (
	// ErrNoScan indicates no scan exists yet for the workspace.
	ErrNoScan = errors.New("no scan available")

	// ErrRemoteUnknown indicates the named remote is not in the latest scan.
	ErrRemoteUnknown = errors.New("remote not found in latest scan")
)

// Service coordinates the scan pipeline, snapshots, graph generation, and
// the dev-server runner for one workspace root.
//
// # Thread Safety
//
// Safe for concurrent use. The cached latest scan is guarded by a mutex;
// collaborators synchronize themselves.
type Service struct {
	root      string
	scanner   *scanner.Scanner
	snapshots *snapshot.Store
	runner    *runner.Runner
	hub       *watch.Hub
	logger    *slog.Logger

	mu       sync.RWMutex
	lastScan *scanner.ScanResult
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunner enables remote start/stop endpoints.
func WithRunner(r *runner.Runner) ServiceOption {
	return func(s *Service) {
		s.runner = r
	}
}

// WithHub sets the watch hub backing the WebSocket stream.
func WithHub(hub *watch.Hub) ServiceOption {
	return func(s *Service) {
		s.hub = hub
	}
}

// NewService wires a Service for one workspace root. The snapshot store
// may be nil; scan listing then returns empty results.
func NewService(root string, sc *scanner.Scanner, snaps *snapshot.Store, opts ...ServiceOption) *Service {
	s := &Service{
		root:      root,
		scanner:   sc,
		snapshots: snaps,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the service's workspace root.
func (s *Service) Root() string {
	return s.root
}

// Hub returns the watch hub, nil when none is configured.
func (s *Service) Hub() *watch.Hub {
	return s.hub
}

// Scan runs the pipeline over the given root (empty uses the service
// root) and caches the result as the latest scan.
func (s *Service) Scan(ctx context.Context, root string) (*scanner.ScanResult, error) {
	if root == "" {
		root = s.root
	}
	result, err := s.scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastScan = result
	s.mu.Unlock()
	return result, nil
}

// ListScans returns summaries of persisted scans, most recent first.
func (s *Service) ListScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	if s.snapshots == nil {
		return []ScanSummary{}, nil
	}
	records, err := s.snapshots.ListScans(ctx, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]ScanSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, ScanSummary{
			ID:        rec.ID,
			Root:      rec.Root,
			StartedAt: rec.StartedAt,
			Duration:  rec.Duration,
			Configs:   len(rec.Configs),
			Stats:     rec.Stats,
		})
	}
	return summaries, nil
}

// GetScan returns one persisted scan record.
func (s *Service) GetScan(ctx context.Context, id string) (*snapshot.ScanRecord, error) {
	if s.snapshots == nil {
		return nil, snapshot.ErrScanNotFound
	}
	return s.snapshots.GetScan(ctx, id)
}

// DeleteScan removes one persisted scan record.
func (s *Service) DeleteScan(ctx context.Context, id string) error {
	if s.snapshots == nil {
		return snapshot.ErrScanNotFound
	}
	return s.snapshots.DeleteScan(ctx, id)
}

// Graph renders the dependency graph for a scan.
//
// An empty scanID uses the cached latest scan, falling back to the most
// recent persisted scan for the service root.
func (s *Service) Graph(ctx context.Context, req GraphRequest) (*GraphResponse, error) {
	var configs []federation.Config
	scanID := req.ScanID

	if scanID == "" {
		id, cfgs, err := s.latestConfigs(ctx)
		if err != nil {
			return nil, err
		}
		scanID, configs = id, cfgs
	} else {
		record, err := s.GetScan(ctx, scanID)
		if err != nil {
			return nil, err
		}
		configs = record.Configs
	}

	opts := graph.DefaultGraphOptions()
	opts.IncludeShared = req.IncludeShared
	if req.MaxNodes > 0 {
		opts.MaxNodes = req.MaxNodes
	}

	output, err := graph.NewGenerator(&opts).Generate(ctx, configs, graph.OutputFormat(req.Format))
	if err != nil {
		return nil, err
	}
	return &GraphResponse{ScanID: scanID, Format: req.Format, Output: output}, nil
}

// Remotes lists every extracted remote merged with live process state.
func (s *Service) Remotes(ctx context.Context) ([]RemoteInfo, error) {
	_, configs, err := s.latestConfigs(ctx)
	if err != nil {
		return nil, err
	}

	running := make(map[string]runner.RemoteStatus)
	if s.runner != nil {
		for _, status := range s.runner.Status() {
			running[status.Name] = status
		}
	}

	infos := make([]RemoteInfo, 0)
	for _, cfg := range configs {
		for _, remote := range cfg.Remotes {
			info := RemoteInfo{
				Name:                  remote.Name,
				ResolvedURLExpression: remote.ResolvedURLExpression,
				OwnerConfig:           cfg.Name,
				SourceFilePath:        cfg.SourceFilePath,
				LocalProjectFolder:    remote.LocalProjectFolder,
				StartCommand:          remote.StartCommand,
				PackageManager:        remote.PackageManager,
			}
			if status, ok := running[remote.Name]; ok {
				info.Running = true
				info.PID = status.PID
			}
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].OwnerConfig < infos[j].OwnerConfig
	})
	return infos, nil
}

// StartRemote starts the named remote's dev server from its confirmed
// binding in the latest scan.
func (s *Service) StartRemote(ctx context.Context, name string) (runner.RemoteStatus, error) {
	if s.runner == nil {
		return runner.RemoteStatus{}, fmt.Errorf("%w: no runner configured", runner.ErrRemoteNotBound)
	}
	remote, err := s.findRemote(ctx, name)
	if err != nil {
		return runner.RemoteStatus{}, err
	}
	if err := s.runner.Start(ctx, remote); err != nil {
		return runner.RemoteStatus{}, err
	}
	for _, status := range s.runner.Status() {
		if status.Name == name {
			return status, nil
		}
	}
	// The process can exit between Start and Status; report what we know.
	return runner.RemoteStatus{Name: name}, nil
}

// StopRemote stops the named remote's process group.
func (s *Service) StopRemote(name string) error {
	if s.runner == nil {
		return runner.ErrRemoteNotRunning
	}
	return s.runner.Stop(name)
}

// findRemote looks a remote up by name in the latest scan.
func (s *Service) findRemote(ctx context.Context, name string) (federation.RemoteRef, error) {
	_, configs, err := s.latestConfigs(ctx)
	if err != nil {
		return federation.RemoteRef{}, err
	}
	for _, cfg := range configs {
		for _, remote := range cfg.Remotes {
			if remote.Name == name {
				return remote, nil
			}
		}
	}
	return federation.RemoteRef{}, fmt.Errorf("%w: %s", ErrRemoteUnknown, name)
}

// latestConfigs returns the configs of the cached latest scan, falling
// back to the newest persisted scan for the service root.
func (s *Service) latestConfigs(ctx context.Context) (string, []federation.Config, error) {
	s.mu.RLock()
	last := s.lastScan
	s.mu.RUnlock()
	if last != nil {
		return last.ID, last.Configs, nil
	}

	if s.snapshots != nil {
		record, err := s.snapshots.LatestScan(ctx, s.root)
		if err == nil {
			return record.ID, record.Configs, nil
		}
		if !errors.Is(err, snapshot.ErrScanNotFound) {
			return "", nil, err
		}
	}
	return "", nil, ErrNoScan
}
