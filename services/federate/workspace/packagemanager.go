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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PackageManager identifies a JavaScript package manager.
type PackageManager string

// Known package managers, in lockfile-probe order.
const (
	ManagerPnpm PackageManager = "pnpm"
	ManagerYarn PackageManager = "yarn"
	ManagerBun  PackageManager = "bun"
	ManagerNpm  PackageManager = "npm"
)

// lockfileProbes maps lockfile names to managers, in probe order. First
// match wins; npm is the fallback when nothing matches.
var lockfileProbes = []struct {
	file    string
	manager PackageManager
}{
	{"pnpm-lock.yaml", ManagerPnpm},
	{"yarn.lock", ManagerYarn},
	{"bun.lockb", ManagerBun},
	{"bun.lock", ManagerBun},
	{"package-lock.json", ManagerNpm},
}

// startScriptPreference orders package.json scripts when deriving a start
// command.
var startScriptPreference = []string{"start", "dev", "serve"}

// Detection is the cached result of probing one folder.
type Detection struct {
	// Manager is the detected package manager.
	Manager PackageManager `json:"manager"`

	// StartCommand runs the project's dev server, empty when package.json
	// has none of the preferred scripts.
	StartCommand string `json:"startCommand"`
}

// Detector probes project folders for their package manager and start
// command.
//
// # Description
//
// Detection is pure filesystem probing: lockfile presence selects the
// manager, and package.json scripts select the start command. Results are
// memoized in an LRU cache owned by the detector, so repeated scans of the
// same workspace stay cheap. The cache is passed in at construction rather
// than living at package level; two detectors never share state implicitly.
//
// # Thread Safety
//
// Safe for concurrent use; the LRU is internally synchronized.
type Detector struct {
	cache *lru.Cache[string, Detection]
}

// DefaultDetectorCacheSize bounds the detection cache.
const DefaultDetectorCacheSize = 256

// NewDetector creates a Detector with its own cache of the given size.
// Sizes below 1 use the default.
func NewDetector(cacheSize int) (*Detector, error) {
	if cacheSize < 1 {
		cacheSize = DefaultDetectorCacheSize
	}
	cache, err := lru.New[string, Detection](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create detection cache: %w", err)
	}
	return &Detector{cache: cache}, nil
}

// Detect probes a project folder, consulting the cache first.
func (d *Detector) Detect(folder string) (Detection, error) {
	if folder == "" {
		return Detection{}, fmt.Errorf("project folder is required")
	}

	if cached, ok := d.cache.Get(folder); ok {
		return cached, nil
	}

	info, err := os.Stat(folder)
	if err != nil {
		return Detection{}, fmt.Errorf("stat project folder: %w", err)
	}
	if !info.IsDir() {
		return Detection{}, fmt.Errorf("project folder %s is not a directory", folder)
	}

	detection := Detection{Manager: ManagerNpm}
	for _, probe := range lockfileProbes {
		if _, err := os.Stat(filepath.Join(folder, probe.file)); err == nil {
			detection.Manager = probe.manager
			break
		}
	}

	if script := preferredScript(folder); script != "" {
		detection.StartCommand = fmt.Sprintf("%s run %s", detection.Manager, script)
	}

	d.cache.Add(folder, detection)
	return detection, nil
}

// preferredScript reads package.json and returns the first preferred
// script name present, empty when the file is missing or has none.
func preferredScript(folder string) string {
	data, err := os.ReadFile(filepath.Join(folder, "package.json"))
	if err != nil {
		return ""
	}

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	for _, name := range startScriptPreference {
		if _, ok := pkg.Scripts[name]; ok {
			return name
		}
	}
	return ""
}
