// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast provides tree-sitter parsing for build-tool configuration files.
//
// # Description
//
// This package wraps the tree-sitter JavaScript and TypeScript grammars behind
// a common Parser interface and returns the parsed syntax tree itself rather
// than an extracted symbol table. The federation package walks the returned
// tree to locate Module Federation entry points; nothing in this package knows
// about federation semantics.
//
// # Thread Safety
//
// Parsers are safe for concurrent use. Each Parse call creates its own
// tree-sitter parser instance. A ParseResult and its tree belong to the
// caller that received them and must not be shared across goroutines while
// the tree is being walked.
package ast

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser defines the contract for language-specific syntax-tree parsing.
//
// # Description
//
// Implementations parse raw source bytes into a tree-sitter tree wrapped in a
// ParseResult. Parsing is resilient: a tree containing syntax-error nodes is
// still returned so callers can extract whatever structure survives.
//
// # Inputs
//
//   - ctx: Checked before and after the tree-sitter parse.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Used for error reporting and grammar selection (.tsx).
//
// # Outputs
//
//   - *ParseResult: Holds the parsed tree; the caller owns it and must call
//     Close() when done walking.
//   - error: Non-nil only for complete failures (oversized input, invalid
//     UTF-8, canceled context, parser failure). Syntax errors inside the
//     file are reported in ParseResult.Errors, not here.
type Parser interface {
	// Parse parses source content into a syntax tree.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language returns the canonical lowercase language name,
	// "javascript" or "typescript".
	Language() string

	// Extensions returns the file extensions this parser handles,
	// including the leading dot, lowercase.
	Extensions() []string
}

// ParseResult holds a parsed syntax tree and its source.
//
// The tree references the content slice; both travel together so that node
// text can be sliced out by byte offset. Close() must be called to release
// the tree-sitter tree once extraction finishes.
type ParseResult struct {
	// FilePath is the path the content was read from.
	FilePath string

	// Language is the parser's language name.
	Language string

	// Hash is the hex-encoded SHA-256 of the content.
	Hash string

	// ParsedAtMilli is when parsing completed (Unix milliseconds UTC).
	ParsedAtMilli int64

	// Content is the raw source the tree was parsed from.
	Content []byte

	// Tree is the parsed tree-sitter tree. Owned by this result.
	Tree *sitter.Tree

	// HasSyntaxErrors reports whether the tree contains ERROR nodes.
	// Extraction still proceeds on such trees.
	HasSyntaxErrors bool

	// Errors lists non-fatal problems found while parsing.
	Errors []string
}

// Root returns the root node of the parsed tree, or nil if absent.
func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.Tree == nil {
		return nil
	}
	return r.Tree.RootNode()
}

// Close releases the underlying tree-sitter tree. Safe to call twice.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
	}
}

// Validate checks structural invariants of the result.
func (r *ParseResult) Validate() error {
	if r.FilePath == "" {
		return NewParseError("", 0, 0, "result missing file path")
	}
	if r.Language == "" {
		return NewParseError(r.FilePath, 0, 0, "result missing language")
	}
	if r.Tree == nil {
		return NewParseError(r.FilePath, 0, 0, "result missing tree")
	}
	return nil
}

// ParserRegistry manages parser instances by language and file extension.
//
// # Thread Safety
//
// Fully thread-safe. Registration uses write locks, lookups use read locks.
type ParserRegistry struct {
	mu sync.RWMutex

	// byLanguage maps language names to parser instances.
	byLanguage map[string]Parser

	// byExtension maps file extensions to parser instances.
	byExtension map[string]Parser
}

// NewParserRegistry creates a new empty ParserRegistry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// NewDefaultRegistry creates a registry with the JavaScript and TypeScript
// parsers registered under their default options.
func NewDefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewJavaScriptParser())
	r.Register(NewTypeScriptParser())
	return r
}

// Register adds a parser under its Language() name and all its Extensions().
// A nil parser is ignored; existing registrations are overwritten.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser

	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for the given language name.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser for the given file extension.
// The extension includes the dot and is case-sensitive (".ts", ".mjs").
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// Languages returns all registered language names.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		languages = append(languages, lang)
	}
	return languages
}

// Extensions returns all registered file extensions.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		extensions = append(extensions, ext)
	}
	return extensions
}
