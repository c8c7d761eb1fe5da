// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// ConflictKind classifies a shared-dependency conflict.
type ConflictKind string

const (
	// ConflictVersion means configs declare divergent versions.
	ConflictVersion ConflictKind = "version"

	// ConflictSingleton means configs disagree on the singleton flag.
	ConflictSingleton ConflictKind = "singleton"
)

// Conflict is one shared dependency declared inconsistently across configs.
type Conflict struct {
	// Name is the shared dependency's package name.
	Name string `json:"name"`

	// Kind classifies the disagreement.
	Kind ConflictKind `json:"kind"`

	// Versions lists the distinct conflicting versions, sorted.
	Versions []string `json:"versions,omitempty"`

	// Configs names the configs involved, sorted.
	Configs []string `json:"configs"`
}

// sharedSighting is one config's declaration of a shared dependency.
type sharedSighting struct {
	configName string
	ref        federation.SharedDependencyRef
}

// FindConflicts groups shared declarations by package name across configs
// and flags disagreements.
//
// # Description
//
// Two kinds of conflict are reported: divergent version declarations
// (comparing version, falling back to requiredVersion, with semver
// canonicalization) and singleton-flag disagreement. Dynamic placeholder
// entries and entries without comparable values are excluded; a config that
// simply omits a version never conflicts with one that declares it.
// Output order is deterministic: sorted by name, then kind.
func FindConflicts(configs []federation.Config) []Conflict {
	byName := make(map[string][]sharedSighting)
	for _, cfg := range configs {
		for _, ref := range cfg.Shared {
			if ref.Name == federation.PlaceholderDynamicShared {
				continue
			}
			byName[ref.Name] = append(byName[ref.Name], sharedSighting{
				configName: cfg.Name,
				ref:        ref,
			})
		}
	}

	conflicts := make([]Conflict, 0)
	for name, sightings := range byName {
		if len(sightings) < 2 {
			continue
		}
		if c := versionConflict(name, sightings); c != nil {
			conflicts = append(conflicts, *c)
		}
		if c := singletonConflict(name, sightings); c != nil {
			conflicts = append(conflicts, *c)
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Name != conflicts[j].Name {
			return conflicts[i].Name < conflicts[j].Name
		}
		return conflicts[i].Kind < conflicts[j].Kind
	})
	return conflicts
}

// versionConflict checks for divergent version declarations.
func versionConflict(name string, sightings []sharedSighting) *Conflict {
	versions := make(map[string]struct{})
	raw := make(map[string]struct{})
	involved := make(map[string]struct{})

	for _, s := range sightings {
		declared := declaredVersion(s.ref)
		if declared == "" {
			continue
		}
		versions[canonicalVersion(declared)] = struct{}{}
		raw[declared] = struct{}{}
		involved[s.configName] = struct{}{}
	}
	if len(versions) < 2 {
		return nil
	}

	return &Conflict{
		Name:     name,
		Kind:     ConflictVersion,
		Versions: sortedKeys(raw),
		Configs:  sortedKeys(involved),
	}
}

// singletonConflict checks for singleton-flag disagreement.
func singletonConflict(name string, sightings []sharedSighting) *Conflict {
	sawTrue, sawFalse := false, false
	involved := make(map[string]struct{})

	for _, s := range sightings {
		if s.ref.Singleton == nil {
			continue
		}
		if *s.ref.Singleton {
			sawTrue = true
		} else {
			sawFalse = true
		}
		involved[s.configName] = struct{}{}
	}
	if !sawTrue || !sawFalse {
		return nil
	}

	return &Conflict{
		Name:    name,
		Kind:    ConflictSingleton,
		Configs: sortedKeys(involved),
	}
}

// declaredVersion picks the comparable version string of a declaration.
func declaredVersion(ref federation.SharedDependencyRef) string {
	if ref.Version != nil && *ref.Version != "" {
		return *ref.Version
	}
	if ref.RequiredVersion != nil && *ref.RequiredVersion != "" {
		return *ref.RequiredVersion
	}
	return ""
}

// canonicalVersion normalizes a declared version for comparison: range
// operators are stripped, a v prefix is ensured, and semver.Canonical
// collapses equivalent forms ("18.0" and "v18.0.0" compare equal).
// Uncanonicalizable strings compare by their trimmed text.
func canonicalVersion(declared string) string {
	trimmed := strings.TrimLeft(declared, "^~>=< ")
	v := trimmed
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if canonical := semver.Canonical(v); canonical != "" {
		return canonical
	}
	return trimmed
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
