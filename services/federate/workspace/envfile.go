// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// envFileNames are probed at the workspace root, in order. Later files do
// not override earlier definitions; only presence matters here.
var envFileNames = []string{".env", ".env.local", ".env.development"}

// envPlaceholderPrefix matches the resolver's environment-lookup rendering.
const envPlaceholderPrefix = "[ENV: "

// EnvProbe reports which [ENV: ...] placeholders in extracted remotes
// reference a variable actually defined in the workspace's dotenv files.
//
// # Description
//
// Files are parsed with godotenv without touching the process environment.
// A missing or unreadable file is logged at debug level and skipped; the
// probe itself never fails. The probe is pure annotation: it reads remotes,
// never mutates them.
type EnvProbe struct {
	vars   map[string]string
	logger *slog.Logger
}

// NewEnvProbe loads dotenv files from the workspace root.
func NewEnvProbe(root string, logger *slog.Logger) *EnvProbe {
	if logger == nil {
		logger = slog.Default()
	}
	probe := &EnvProbe{
		vars:   make(map[string]string),
		logger: logger,
	}

	for _, name := range envFileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		parsed, err := godotenv.Read(path)
		if err != nil {
			logger.Debug("skipping unreadable env file",
				slog.String("component", "workspace.envprobe"),
				slog.String("file", path),
				slog.Any("error", err),
			)
			continue
		}
		for key, value := range parsed {
			if _, exists := probe.vars[key]; !exists {
				probe.vars[key] = value
			}
		}
	}
	return probe
}

// Defined reports whether a variable name is defined in the loaded files.
func (p *EnvProbe) Defined(name string) bool {
	_, ok := p.vars[name]
	return ok
}

// CoveredRemotes returns the names of remotes whose [ENV: ...] placeholder
// references a defined variable.
//
// The placeholder renders the full dotted lookup path; the variable name is
// its final component, so "[ENV: process.env.REMOTE_URL]" is covered when
// REMOTE_URL is defined. Remotes with concrete URLs or other placeholder
// kinds are not reported.
func (p *EnvProbe) CoveredRemotes(remotes []federation.RemoteRef) []string {
	covered := make([]string, 0)
	for _, remote := range remotes {
		name, ok := envVarName(remote.ResolvedURLExpression)
		if !ok {
			continue
		}
		if p.Defined(name) {
			covered = append(covered, remote.Name)
		}
	}
	return covered
}

// envVarName extracts the variable name from an [ENV: ...] placeholder.
func envVarName(resolved string) (string, bool) {
	if !strings.HasPrefix(resolved, envPlaceholderPrefix) || !strings.HasSuffix(resolved, "]") {
		return "", false
	}
	path := strings.TrimSuffix(strings.TrimPrefix(resolved, envPlaceholderPrefix), "]")
	parts := strings.Split(path, ".")
	name := parts[len(parts)-1]
	if name == "" {
		return "", false
	}
	return name, true
}
