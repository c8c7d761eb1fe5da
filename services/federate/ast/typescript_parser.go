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
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.opentelemetry.io/otel/attribute"
)

// TypeScriptParser parses TypeScript configuration sources.
//
// # Description
//
// TypeScriptParser selects between the typescript and tsx grammars by file
// suffix: .tsx files use the tsx grammar (the two grammars disagree about
// angle brackets), everything else uses the plain typescript grammar. The
// TypeScript grammar also introduces the wrapper expressions the federation
// resolver unwraps (non-null assertions, as-casts, satisfies).
//
// # Thread Safety
//
// Safe for concurrent use. Each Parse call creates its own tree-sitter
// parser instance.
type TypeScriptParser struct {
	options ParserOptions
}

// NewTypeScriptParser creates a TypeScriptParser with the given options.
func NewTypeScriptParser(opts ...ParserOption) *TypeScriptParser {
	options := DefaultParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &TypeScriptParser{options: options}
}

// Language returns the language name for this parser.
func (p *TypeScriptParser) Language() string {
	return "typescript"
}

// Extensions returns the file extensions this parser handles.
func (p *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts"}
}

// Parse parses TypeScript source into a syntax tree.
//
// Grammar selection happens per call based on filePath, so a single parser
// instance serves both .ts and .tsx files.
func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("typescript parse canceled before start: %w", ErrContextCanceled)
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
	ctx, span := startParseSpan(ctx, "typescript", filePath, len(content))
	defer span.End()

	parser := sitter.NewParser()
	if strings.HasSuffix(filePath, ".tsx") {
		parser.SetLanguage(tsx.GetLanguage())
		span.SetAttributes(attribute.String("parse.grammar", "tsx"))
	} else {
		parser.SetLanguage(typescript.GetLanguage())
		span.SetAttributes(attribute.String("parse.grammar", "typescript"))
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, "typescript", time.Since(start), false)
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		recordParseMetrics(ctx, "typescript", time.Since(start), false)
		return nil, fmt.Errorf("typescript parse canceled after tree-sitter: %w", ErrContextCanceled)
	}

	result := &ParseResult{
		FilePath:      filePath,
		Language:      "typescript",
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

	recordParseMetrics(ctx, "typescript", time.Since(start), true)
	return result, nil
}

// Compile-time interface check.
var _ Parser = (*TypeScriptParser)(nil)
