// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the dialect registry for the federation inspector.
//
// The registry ships as embedded YAML so a bare binary works without any
// config file; a user override file can replace individual settings.
//
// Thread Safety:
//
//	All exported functions are safe for concurrent use. A loaded Registry
//	is immutable.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

const (
	// MaxYAMLFileSize is the maximum allowed override file size (1MB).
	MaxYAMLFileSize = 1024 * 1024

	// MaxPatternsPerDialect bounds pattern lists in override files.
	MaxPatternsPerDialect = 50
)

//go:embed dialects.yaml
var defaultDialectsYAML []byte

var (
	registryLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "federate_registry_load_errors_total",
		Help: "Total dialect registry load errors",
	})

	registryLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "federate_registry_load_duration_seconds",
		Help:    "Duration of dialect registry loading",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5},
	})
)

// Registry load errors.
var (
	// ErrRegistryTooLarge indicates an override file over MaxYAMLFileSize.
	ErrRegistryTooLarge = errors.New("registry file too large")

	// ErrRegistryInvalid indicates a structurally invalid registry.
	ErrRegistryInvalid = errors.New("registry invalid")
)

// DialectEntry binds one dialect to its config-file patterns.
type DialectEntry struct {
	// Name is the dialect tag, matching federation.Dialect values.
	Name string `yaml:"name"`

	// Patterns are the exact file names that select this dialect.
	Patterns []string `yaml:"patterns"`
}

// Registry is the loaded dialect registry.
type Registry struct {
	// Dialects lists the known dialects and their file patterns.
	Dialects []DialectEntry `yaml:"dialects"`

	// SkipDirs are directory names discovery never descends into.
	SkipDirs []string `yaml:"skip_dirs"`

	// LegacyViteMatch widens the Vite plugin match to substring form.
	LegacyViteMatch bool `yaml:"legacy_vite_match"`

	// MaxFileSize is the per-file parse limit in bytes.
	MaxFileSize int `yaml:"max_file_size"`

	// ScanConcurrency bounds concurrent extraction within one scan.
	ScanConcurrency int `yaml:"scan_concurrency"`
}

// Load returns the embedded default registry.
func Load() (*Registry, error) {
	return parseRegistry(defaultDialectsYAML)
}

// LoadFile loads a user override file, falling back to embedded defaults
// for any field the file omits.
func LoadFile(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		registryLoadErrors.Inc()
		return nil, fmt.Errorf("stat registry file: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		registryLoadErrors.Inc()
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrRegistryTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		registryLoadErrors.Inc()
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	// Start from defaults so omitted fields keep their embedded values.
	registry, err := Load()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, registry); err != nil {
		registryLoadErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrRegistryInvalid, err)
	}
	if err := registry.Validate(); err != nil {
		registryLoadErrors.Inc()
		return nil, err
	}
	return registry, nil
}

// parseRegistry unmarshals and validates registry YAML.
func parseRegistry(data []byte) (*Registry, error) {
	start := time.Now()
	defer func() {
		registryLoadDuration.Observe(time.Since(start).Seconds())
	}()

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		registryLoadErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrRegistryInvalid, err)
	}
	if err := registry.Validate(); err != nil {
		registryLoadErrors.Inc()
		return nil, err
	}
	return &registry, nil
}

// Validate checks structural invariants of a registry.
func (r *Registry) Validate() error {
	if len(r.Dialects) == 0 {
		return fmt.Errorf("%w: no dialects", ErrRegistryInvalid)
	}
	for _, entry := range r.Dialects {
		if !federation.Dialect(entry.Name).Valid() {
			return fmt.Errorf("%w: unknown dialect %q", ErrRegistryInvalid, entry.Name)
		}
		if len(entry.Patterns) == 0 {
			return fmt.Errorf("%w: dialect %q has no patterns", ErrRegistryInvalid, entry.Name)
		}
		if len(entry.Patterns) > MaxPatternsPerDialect {
			return fmt.Errorf("%w: dialect %q has %d patterns (max %d)",
				ErrRegistryInvalid, entry.Name, len(entry.Patterns), MaxPatternsPerDialect)
		}
	}
	if r.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive", ErrRegistryInvalid)
	}
	if r.ScanConcurrency <= 0 {
		return fmt.Errorf("%w: scan_concurrency must be positive", ErrRegistryInvalid)
	}
	return nil
}

// DialectForFile returns the dialect whose patterns contain the exact file
// name, false when no dialect claims it.
func (r *Registry) DialectForFile(fileName string) (federation.Dialect, bool) {
	for _, entry := range r.Dialects {
		for _, pattern := range entry.Patterns {
			if pattern == fileName {
				return federation.Dialect(entry.Name), true
			}
		}
	}
	return "", false
}

// ShouldSkipDir reports whether discovery skips a directory name.
func (r *Registry) ShouldSkipDir(name string) bool {
	for _, dir := range r.SkipDirs {
		if dir == name {
			return true
		}
	}
	return false
}
