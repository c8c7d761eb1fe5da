// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.opentelemetry.io/otel/attribute"
)

// JavaScriptParser parses JavaScript configuration sources.
//
// # Description
//
// JavaScriptParser uses the tree-sitter JavaScript grammar. It covers the
// CommonJS and ESM config files build tools accept (.js, .mjs, .cjs) plus
// .jsx, which the grammar handles natively.
//
// # Thread Safety
//
// Safe for concurrent use. Each Parse call creates its own tree-sitter
// parser instance.
type JavaScriptParser struct {
	options ParserOptions
}

// ParserOptions configures parser behavior. Shared by both language parsers.
type ParserOptions struct {
	// MaxFileSize is the maximum content size in bytes.
	// Larger inputs return ErrFileTooLarge. Default: 5MB; config files
	// are small; anything bigger is a generated bundle, not a config.
	MaxFileSize int

	// WarnFileSize is the threshold above which a warning is logged.
	// Default: 1MB.
	WarnFileSize int
}

// DefaultParserOptions returns the default options.
func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		MaxFileSize:  5 * 1024 * 1024,
		WarnFileSize: 1 * 1024 * 1024,
	}
}

// ParserOption is a functional option for configuring a parser.
type ParserOption func(*ParserOptions)

// WithMaxFileSize sets the maximum content size for parsing.
func WithMaxFileSize(size int) ParserOption {
	return func(o *ParserOptions) {
		o.MaxFileSize = size
	}
}

// NewJavaScriptParser creates a JavaScriptParser with the given options.
func NewJavaScriptParser(opts ...ParserOption) *JavaScriptParser {
	options := DefaultParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &JavaScriptParser{options: options}
}

// Language returns the language name for this parser.
func (p *JavaScriptParser) Language() string {
	return "javascript"
}

// Extensions returns the file extensions this parser handles.
func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx"}
}

// Parse parses JavaScript source into a syntax tree.
//
// # Description
//
// Validates the input, parses with tree-sitter, and returns the tree wrapped
// in a ParseResult. A tree containing ERROR nodes is still returned with
// HasSyntaxErrors set; downstream matchers extract what they can from it.
//
// # Thread Safety
//
// Safe for concurrent use.
func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled before start: %w", ErrContextCanceled)
	}

	if len(content) > p.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if len(content) > p.options.WarnFileSize {
		slog.Warn("parsing unusually large config file",
			slog.String("file", filePath),
			slog.Int("bytes", len(content)),
		)
	}

	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	hash := sha256.Sum256(content)

	start := time.Now()
	ctx, span := startParseSpan(ctx, "javascript", filePath, len(content))
	defer span.End()

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, "javascript", time.Since(start), false)
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		recordParseMetrics(ctx, "javascript", time.Since(start), false)
		return nil, fmt.Errorf("javascript parse canceled after tree-sitter: %w", ErrContextCanceled)
	}

	result := &ParseResult{
		FilePath:      filePath,
		Language:      "javascript",
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: time.Now().UnixMilli(),
		Content:       content,
		Tree:          tree,
		Errors:        make([]string, 0),
	}

	if root := tree.RootNode(); root != nil && root.HasError() {
		result.HasSyntaxErrors = true
		result.Errors = append(result.Errors, "syntax errors present; extraction is best-effort")
		span.SetAttributes(attribute.Bool("parse.has_syntax_errors", true))
	}

	if err := result.Validate(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("validation error: %v", err))
	}

	recordParseMetrics(ctx, "javascript", time.Since(start), true)
	return result, nil
}

// Compile-time interface check.
var _ Parser = (*JavaScriptParser)(nil)
