// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package federation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianFederate/services/federate/ast"
)

// DefaultExtractConcurrency bounds the per-batch file fan-out.
const DefaultExtractConcurrency = 8

// Extractor orchestrates per-file extraction: read, parse, match, stamp
// provenance.
//
// # Description
//
// A batch fans out over its files with a bounded errgroup. Each unit reads
// and parses one file and runs the dialect's matcher; failures are logged
// with the file path and cause, and that file contributes nothing to the
// batch. No failure aborts sibling files. Results merge in input order on
// the caller's goroutine after the fan-in, so no shared state is written
// from concurrent units.
//
// # Thread Safety
//
// Safe for concurrent use; the extractor itself is immutable after
// construction.
type Extractor struct {
	registry    *ast.ParserRegistry
	logger      *slog.Logger
	legacyVite  bool
	concurrency int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithRegistry replaces the default parser registry.
func WithRegistry(registry *ast.ParserRegistry) ExtractorOption {
	return func(e *Extractor) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// WithLogger sets the logger for per-file diagnostics.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLegacyViteMatch enables substring matching of the Vite plugin name.
func WithLegacyViteMatch(enabled bool) ExtractorOption {
	return func(e *Extractor) {
		e.legacyVite = enabled
	}
}

// WithConcurrency bounds the batch fan-out. Values below 1 are ignored.
func WithConcurrency(n int) ExtractorOption {
	return func(e *Extractor) {
		if n >= 1 {
			e.concurrency = n
		}
	}
}

// NewExtractor creates an Extractor with the default parser registry and
// the package default logger.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		registry:    ast.NewDefaultRegistry(),
		logger:      slog.Default(),
		concurrency: DefaultExtractConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile reads, parses, and matches a single config file.
//
// The returned Config carries the file path as provenance. Errors cover
// I/O, missing parser, and parse failure; matching itself never fails.
func (e *Extractor) ExtractFile(ctx context.Context, ref FileRef) (Config, error) {
	matcher := MatcherFor(ref.Dialect, e.legacyVite)
	if matcher == nil {
		return Config{}, fmt.Errorf("no matcher for dialect %q", ref.Dialect)
	}

	content, err := os.ReadFile(ref.Path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", ref.Path, err)
	}

	ext := strings.ToLower(filepath.Ext(ref.Path))
	parser, ok := e.registry.GetByExtension(ext)
	if !ok {
		return Config{}, fmt.Errorf("%s: %w", ref.Path, ast.ErrUnsupportedLanguage)
	}

	result, err := parser.Parse(ctx, content, ref.Path)
	if err != nil {
		return Config{}, ast.WrapParseError(err, ref.Path)
	}
	defer result.Close()

	cfg := matcher.Match(result)
	cfg.SourceFilePath = ref.Path

	e.logger.Debug("extracted federation config",
		slog.String("component", "federation.extractor"),
		slog.String("file", ref.Path),
		slog.String("dialect", string(ref.Dialect)),
		slog.String("name", cfg.Name),
		slog.Int("remotes", len(cfg.Remotes)),
		slog.Int("exposes", len(cfg.Exposes)),
		slog.Int("shared", len(cfg.Shared)),
	)
	return cfg, nil
}

// ExtractBatch processes a batch of files and returns the configs that
// extracted successfully, in input order.
//
// Per-file failures are logged and skipped; the error slice pairs each
// failure with its file for callers that surface warnings. A canceled
// context stops issuing new files but never turns into a batch error.
func (e *Extractor) ExtractBatch(ctx context.Context, refs []FileRef) ([]Config, []error) {
	results := make([]*Config, len(refs))
	failures := make([]error, 0)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	errCh := make(chan error, len(refs))

	for i, ref := range refs {
		g.Go(func() error {
			cfg, err := e.ExtractFile(ctx, ref)
			if err != nil {
				e.logger.Warn("skipping config file",
					slog.String("component", "federation.extractor"),
					slog.String("file", ref.Path),
					slog.Any("error", err),
				)
				errCh <- err
				return nil
			}
			results[i] = &cfg
			return nil
		})
	}

	// Units only return nil; Wait is a pure fan-in barrier.
	_ = g.Wait()
	close(errCh)

	for err := range errCh {
		failures = append(failures, err)
	}

	configs := make([]Config, 0, len(refs))
	for _, cfg := range results {
		if cfg != nil {
			configs = append(configs, *cfg)
		}
	}
	return configs, failures
}
