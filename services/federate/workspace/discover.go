// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace discovers candidate federation config files and
// annotates extraction results with facts about the local checkout:
// package manager, start command, and .env variable coverage.
//
// # Thread Safety
//
// All types are safe for concurrent use after construction.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/AleutianAI/AleutianFederate/services/federate/config"
	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// Discoverer walks a workspace tree collecting federation config files.
type Discoverer struct {
	registry *config.Registry
}

// NewDiscoverer creates a Discoverer using the given dialect registry.
// A nil registry loads the embedded defaults.
func NewDiscoverer(registry *config.Registry) (*Discoverer, error) {
	if registry == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load dialect registry: %w", err)
		}
		registry = loaded
	}
	return &Discoverer{registry: registry}, nil
}

// Discover collects candidate config files under root, ordered by path.
//
// # Description
//
// The walk skips the registry's skip directories (.git, node_modules and
// friends) but still descends into other dotfile directories, since config
// files at any depth count. Symlinked directories are not followed;
// filepath.WalkDir never follows them. Unreadable subtrees are skipped
// rather than failing the walk. Context cancellation aborts with the
// context's error.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]federation.FileRef, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", root)
	}

	refs := make([]federation.FileRef, 0)

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			// Unreadable entry: skip the subtree, keep walking siblings.
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path != root && d.registry.ShouldSkipDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if dialect, ok := d.registry.DialectForFile(entry.Name()); ok {
			refs = append(refs, federation.FileRef{Path: path, Dialect: dialect})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Path < refs[j].Path
	})
	return refs, nil
}
