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

import "testing"

func TestResolveExpression(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "string literal round-trip",
			src:  `const x = 'app1@http://localhost:3001/remoteEntry.js';`,
			want: "app1@http://localhost:3001/remoteEntry.js",
		},
		{
			name: "double-quoted literal",
			src:  `const x = "hello";`,
			want: "hello",
		},
		{
			name: "empty literal",
			src:  `const x = '';`,
			want: "",
		},
		{
			name: "identifier",
			src:  `const x = remoteUrl;`,
			want: "[VAR: remoteUrl]",
		},
		{
			name: "two-level member access",
			src:  `const x = a.b;`,
			want: "[ENV: a.b]",
		},
		{
			name: "three-level member access",
			src:  `const x = process.env.REMOTE_URL;`,
			want: "[ENV: process.env.REMOTE_URL]",
		},
		{
			name: "four-level member access falls back",
			src:  `const x = a.b.c.d;`,
			want: "[DYNAMIC_URL]",
		},
		{
			name: "computed member access falls back",
			src:  `const x = env['REMOTE_URL'];`,
			want: "[DYNAMIC_URL]",
		},
		{
			name: "template with substitution",
			src:  "const x = `http://${host}:3001/remoteEntry.js`;",
			want: "http://[EXPR]:3001/remoteEntry.js",
		},
		{
			name: "template with two substitutions",
			src:  "const x = `${proto}://${host}/r.js`;",
			want: "[EXPR]://[EXPR]/r.js",
		},
		{
			name: "template without substitution",
			src:  "const x = `http://localhost/r.js`;",
			want: "http://localhost/r.js",
		},
		{
			name: "bare function call",
			src:  `const x = getRemoteUrl();`,
			want: "[FUNC: getRemoteUrl()]",
		},
		{
			name: "method call",
			src:  `const x = urls.remote();`,
			want: "[FUNC: urls.remote()]",
		},
		{
			name: "deep method call keeps final name",
			src:  `const x = config.urls.remote();`,
			want: "[FUNC: remote()]",
		},
		{
			name: "ternary",
			src:  `const x = isDev ? devUrl : prodUrl;`,
			want: "[CONDITIONAL]",
		},
		{
			name: "string concatenation",
			src:  `const x = base + '/remoteEntry.js';`,
			want: "[EXPR]",
		},
		{
			name: "arrow function falls back",
			src:  `const x = () => 'url';`,
			want: "[DYNAMIC_URL]",
		},
		{
			name: "parenthesized literal unwraps",
			src:  `const x = ('url');`,
			want: "url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseJS(t, tt.src)
			expr := valueExpression(t, result)

			got, ok := ResolveExpression(result.Content, expr)
			if !ok {
				t.Fatalf("ResolveExpression returned ok=false for %q", tt.src)
			}
			if got != tt.want {
				t.Errorf("ResolveExpression(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestResolveExpressionTypeScriptWrappers(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "as-cast unwraps to literal",
			src:  `const x = 'url' as string;`,
			want: "url",
		},
		{
			name: "non-null assertion unwraps to env",
			src:  `const x = process.env.REMOTE_URL!;`,
			want: "[ENV: process.env.REMOTE_URL]",
		},
		{
			name: "nested wrappers unwrap",
			src:  `const x = ('url' as const)!;`,
			want: "url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTS(t, tt.src)
			expr := valueExpression(t, result)

			got, ok := ResolveExpression(result.Content, expr)
			if !ok {
				t.Fatalf("ResolveExpression returned ok=false")
			}
			if got != tt.want {
				t.Errorf("ResolveExpression(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestResolveExpressionNil(t *testing.T) {
	got, ok := ResolveExpression(nil, nil)
	if ok {
		t.Errorf("ResolveExpression(nil) ok = true, want false")
	}
	if got != "" {
		t.Errorf("ResolveExpression(nil) = %q, want empty", got)
	}
}
