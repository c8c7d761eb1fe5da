// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package federation extracts Module Federation configuration from parsed
// build-tool config files.
//
// # Description
//
// Build tools declare federation in four syntactic dialects: a webpack-style
// plugin construction, a Vite plugin call, an Rsbuild config section, and a
// declarative config-function call. This package walks the syntax trees
// produced by the ast package, locates the dialect-specific entry point, and
// copies out a normalized Config: container name, consumed remotes, exposed
// modules, and shared-dependency declarations.
//
// Extraction is static and best-effort. The inspected files are never
// executed, so dynamically computed values (environment lookups, template
// strings, helper calls) resolve to tagged placeholders rather than concrete
// strings. Matchers are total functions: a tree with no federation entry
// point yields an empty Config, never an error.
//
// # Thread Safety
//
// All matchers and resolvers are pure functions over an immutable parsed
// tree. They hold no state and are safe for concurrent use on distinct
// trees.
package federation

// Dialect identifies the build-tool convention a config was extracted from.
type Dialect string

// Supported federation dialects.
const (
	DialectWebpack     Dialect = "webpack"
	DialectVite        Dialect = "vite"
	DialectRsbuild     Dialect = "rsbuild"
	DialectDeclarative Dialect = "declarative"
)

// Valid reports whether d is one of the supported dialects.
func (d Dialect) Valid() bool {
	switch d {
	case DialectWebpack, DialectVite, DialectRsbuild, DialectDeclarative:
		return true
	}
	return false
}

// Placeholder values the resolver emits for expressions it cannot evaluate.
// Downstream consumers (tree view, graph) recognize these to render dynamic
// values distinctly instead of treating them as concrete URLs.
const (
	// PlaceholderExpr replaces template-string substitutions and binary
	// expressions whose value is unknowable statically.
	PlaceholderExpr = "[EXPR]"

	// PlaceholderConditional marks a ternary expression.
	PlaceholderConditional = "[CONDITIONAL]"

	// PlaceholderDynamicURL marks any expression shape the resolver has no
	// specific rendering for.
	PlaceholderDynamicURL = "[DYNAMIC_URL]"

	// PlaceholderDynamicShared is the single shared-dependency name emitted
	// when the whole `shared` value is an unresolvable call expression.
	PlaceholderDynamicShared = "[DYNAMIC_SHARED]"
)

// Config is the normalized description of one federation entry point found
// in one file.
//
// Dialect is fixed at creation. One file yields at most one Config per
// dialect matcher; several matchers may run against the same tree and
// produce independent results.
type Config struct {
	// Name is the federation container's declared name, empty if not found.
	Name string `json:"name"`

	// Remotes lists consumed remotes in source order.
	Remotes []RemoteRef `json:"remotes"`

	// Exposes lists exposed modules in source order.
	Exposes []ExposedModuleRef `json:"exposes"`

	// Shared lists shared-dependency declarations in source order.
	Shared []SharedDependencyRef `json:"shared"`

	// Dialect is the matcher that produced this config.
	Dialect Dialect `json:"dialect"`

	// SourceFilePath is the absolute path of the extracted file, stamped by
	// the extractor after matching.
	SourceFilePath string `json:"sourceFilePath"`
}

// NewConfig returns an empty Config for the given dialect. Slices are
// non-nil so a no-match result marshals as [] rather than null.
func NewConfig(dialect Dialect) Config {
	return Config{
		Dialect: dialect,
		Remotes: make([]RemoteRef, 0),
		Exposes: make([]ExposedModuleRef, 0),
		Shared:  make([]SharedDependencyRef, 0),
	}
}

// Empty reports whether extraction found nothing in the file.
func (c *Config) Empty() bool {
	return c.Name == "" && len(c.Remotes) == 0 && len(c.Exposes) == 0 && len(c.Shared) == 0
}

// RemoteRef is a consumed federation module.
//
// Name is the key the remote was registered under; it may repeat across
// files describing the same logical remote and is not deduplicated here.
// LocalProjectFolder, StartCommand, and PackageManager are empty at
// extraction time and overlaid later by the sidecar store and workspace
// detector; the extraction core never writes them.
type RemoteRef struct {
	// Name is the registration key of the remote.
	Name string `json:"name"`

	// ResolvedURLExpression is the resolver's rendering of the remote's
	// entry expression: a literal URL or a tagged placeholder.
	ResolvedURLExpression string `json:"resolvedUrlExpression"`

	// LocalProjectFolder is the user-confirmed local checkout, if any.
	LocalProjectFolder string `json:"localProjectFolder,omitempty"`

	// StartCommand starts the remote's dev server, if confirmed.
	StartCommand string `json:"startCommand,omitempty"`

	// PackageManager is the detected manager for LocalProjectFolder.
	PackageManager string `json:"packageManager,omitempty"`
}

// ExposedModuleRef is a module a container exposes to consumers.
type ExposedModuleRef struct {
	// ExposedName is the public import key, e.g. "./Widget".
	ExposedName string `json:"exposedName"`

	// ModulePath is the literal source path behind the key. Exposes whose
	// value is not a literal are dropped during extraction.
	ModulePath string `json:"modulePath"`

	// OwnerConfigName is the Name of the owning Config, stamped after the
	// matcher run completes.
	OwnerConfigName string `json:"ownerConfigName"`
}

// SharedDependencyRef is one shared-dependency declaration.
//
// Optional fields are populated only when the source literal's type matches:
// boolean fields require boolean literals, string fields require string
// literals. Everything else is ignored without error.
type SharedDependencyRef struct {
	// Name is the package name, or PlaceholderDynamicShared when the whole
	// shared value was an unresolvable call expression.
	Name string `json:"name"`

	Singleton     *bool `json:"singleton,omitempty"`
	Eager         *bool `json:"eager,omitempty"`
	StrictVersion *bool `json:"strictVersion,omitempty"`

	Version         *string `json:"version,omitempty"`
	RequiredVersion *string `json:"requiredVersion,omitempty"`
}

// FileRef pairs a candidate config file with the dialect its filename
// implies. Produced by workspace discovery, consumed by the extractor.
type FileRef struct {
	// Path is the absolute file path.
	Path string `json:"path"`

	// Dialect selects the matcher to run against the file.
	Dialect Dialect `json:"dialect"`
}
