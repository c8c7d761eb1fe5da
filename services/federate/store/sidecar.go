// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists user-confirmed remote bindings in a JSON sidecar
// file at the workspace root.
//
// The extraction core never learns where a remote lives on disk; the user
// confirms a folder (and optionally a start command) through the TUI or
// API, and the sidecar carries those choices between runs. Merge overlays
// them onto freshly extracted configs by remote name.
//
// # Thread Safety
//
// Store is safe for concurrent use; state is guarded by an RWMutex.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// SidecarFileName is the sidecar's name at the workspace root.
const SidecarFileName = ".aleutian-federate.json"

// MaxSidecarSize bounds sidecar reads (1MB). The file holds a handful of
// folder bindings; anything larger is not ours.
const MaxSidecarSize = 1024 * 1024

// Sidecar errors.
var (
	// ErrSidecarTooLarge indicates a sidecar over MaxSidecarSize.
	ErrSidecarTooLarge = errors.New("sidecar file too large")

	// ErrSidecarMalformed indicates undecodable sidecar JSON.
	ErrSidecarMalformed = errors.New("sidecar file malformed")

	// ErrRemoteNotBound indicates no binding exists for a remote name.
	ErrRemoteNotBound = errors.New("remote not bound")
)

// RemoteBinding is one user-confirmed remote configuration.
type RemoteBinding struct {
	// Folder is the confirmed local checkout of the remote.
	Folder string `json:"folder"`

	// StartCommand starts the remote's dev server.
	StartCommand string `json:"startCommand,omitempty"`

	// PackageManager is the manager detected for Folder.
	PackageManager string `json:"packageManager,omitempty"`
}

// sidecarDocument is the on-disk schema.
type sidecarDocument struct {
	// Version allows future schema migration.
	Version int `json:"version"`

	// Remotes maps remote names to their confirmed bindings.
	Remotes map[string]RemoteBinding `json:"remotes"`

	// IgnoredConfigs lists config file paths the user hid from the tree.
	IgnoredConfigs []string `json:"ignoredConfigs,omitempty"`
}

// sidecarVersion is the current schema version.
const sidecarVersion = 1

// Store manages one workspace's sidecar file.
type Store struct {
	path string

	mu       sync.RWMutex
	remotes  map[string]RemoteBinding
	ignored  map[string]struct{}
	loadedOK bool
}

// NewStore creates a Store for the sidecar under the given workspace root.
func NewStore(workspaceRoot string) *Store {
	return &Store{
		path:    filepath.Join(workspaceRoot, SidecarFileName),
		remotes: make(map[string]RemoteBinding),
		ignored: make(map[string]struct{}),
	}
}

// Path returns the sidecar file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the sidecar from disk. A missing file is empty state, not an
// error; oversized or malformed files return sentinel errors and leave the
// in-memory state untouched.
func (s *Store) Load() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.loadedOK = true
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat sidecar: %w", err)
	}
	if info.Size() > MaxSidecarSize {
		return fmt.Errorf("%w: %d bytes", ErrSidecarTooLarge, info.Size())
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read sidecar: %w", err)
	}

	var doc sidecarDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSidecarMalformed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remotes = make(map[string]RemoteBinding, len(doc.Remotes))
	for name, binding := range doc.Remotes {
		s.remotes[name] = binding
	}
	s.ignored = make(map[string]struct{}, len(doc.IgnoredConfigs))
	for _, path := range doc.IgnoredConfigs {
		s.ignored[path] = struct{}{}
	}
	s.loadedOK = true
	return nil
}

// Save writes the sidecar atomically: temp file in the same directory,
// then rename. Mode 0600; the file may hold local filesystem layout.
func (s *Store) Save() error {
	s.mu.RLock()
	doc := sidecarDocument{
		Version: sidecarVersion,
		Remotes: make(map[string]RemoteBinding, len(s.remotes)),
	}
	for name, binding := range s.remotes {
		doc.Remotes[name] = binding
	}
	for path := range s.ignored {
		doc.IgnoredConfigs = append(doc.IgnoredConfigs, path)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".aleutian-federate-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp sidecar: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp sidecar: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename sidecar: %w", err)
	}
	return nil
}

// Bind records a remote's confirmed binding.
func (s *Store) Bind(remoteName string, binding RemoteBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remotes[remoteName] = binding
}

// Unbind removes a remote's binding. Returns ErrRemoteNotBound when none
// exists.
func (s *Store) Unbind(remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.remotes[remoteName]; !ok {
		return fmt.Errorf("%w: %s", ErrRemoteNotBound, remoteName)
	}
	delete(s.remotes, remoteName)
	return nil
}

// Binding returns a remote's binding.
func (s *Store) Binding(remoteName string) (RemoteBinding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	binding, ok := s.remotes[remoteName]
	return binding, ok
}

// Bindings returns a copy of all bindings.
func (s *Store) Bindings() map[string]RemoteBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RemoteBinding, len(s.remotes))
	for name, binding := range s.remotes {
		out[name] = binding
	}
	return out
}

// Ignore marks a config file path as hidden.
func (s *Store) Ignore(configPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignored[configPath] = struct{}{}
}

// Ignored reports whether a config file path is hidden.
func (s *Store) Ignored(configPath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ignored[configPath]
	return ok
}

// Merge overlays confirmed bindings onto extracted configs by remote name.
//
// Only LocalProjectFolder, StartCommand, and PackageManager are written;
// extraction fields are never touched. Configs are modified in place.
func (s *Store) Merge(configs []federation.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ci := range configs {
		for ri := range configs[ci].Remotes {
			remote := &configs[ci].Remotes[ri]
			binding, ok := s.remotes[remote.Name]
			if !ok {
				continue
			}
			remote.LocalProjectFolder = binding.Folder
			remote.StartCommand = binding.StartCommand
			remote.PackageManager = binding.PackageManager
		}
	}
}
