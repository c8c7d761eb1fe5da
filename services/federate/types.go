// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package federate

import (
	"time"

	"github.com/AleutianAI/AleutianFederate/services/federate/runner"
	"github.com/AleutianAI/AleutianFederate/services/federate/snapshot"
)

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	// Root overrides the service's workspace root for this scan. Must be
	// a clean absolute path when set.
	Root string `json:"root,omitempty" binding:"omitempty,abspath"`
}

// ScanSummary is one entry of GET /api/v1/scans.
type ScanSummary struct {
	ID        string             `json:"id"`
	Root      string             `json:"root"`
	StartedAt time.Time          `json:"startedAt"`
	Duration  time.Duration      `json:"duration"`
	Configs   int                `json:"configs"`
	Stats     snapshot.ScanStats `json:"stats"`
}

// GraphRequest is the body of POST /api/v1/graph.
type GraphRequest struct {
	// ScanID selects a persisted scan; empty uses the latest scan for the
	// service's workspace root.
	ScanID string `json:"scanId,omitempty"`

	// Format is the output format.
	Format string `json:"format" binding:"required,oneof=mermaid dot d3 html"`

	// IncludeShared adds shared-dependency nodes.
	IncludeShared bool `json:"includeShared,omitempty"`

	// MaxNodes caps the rendered node count; 0 uses the default.
	MaxNodes int `json:"maxNodes,omitempty"`
}

// GraphResponse is the body returned by POST /api/v1/graph.
type GraphResponse struct {
	ScanID string `json:"scanId"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// RemoteInfo is one entry of GET /api/v1/remotes: an extracted remote
// merged with its live process state.
type RemoteInfo struct {
	Name                  string `json:"name"`
	ResolvedURLExpression string `json:"resolvedUrlExpression"`
	OwnerConfig           string `json:"ownerConfig"`
	SourceFilePath        string `json:"sourceFilePath"`
	LocalProjectFolder    string `json:"localProjectFolder,omitempty"`
	StartCommand          string `json:"startCommand,omitempty"`
	PackageManager        string `json:"packageManager,omitempty"`
	Running               bool   `json:"running"`
	PID                   int    `json:"pid,omitempty"`
}

// RemoteActionResponse is returned by start/stop remote endpoints.
type RemoteActionResponse struct {
	Name   string              `json:"name"`
	Status runner.RemoteStatus `json:"status"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
