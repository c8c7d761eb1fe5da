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

func TestDeclarativeMatcherExportDefault(t *testing.T) {
	result := parseTS(t, `
import { createModuleFederationConfig } from '@module-federation/enhanced';

export default createModuleFederationConfig({
  name: 'shell',
  remotes: { catalog: 'catalog@https://x/remoteEntry.js' },
});
`)
	cfg := NewDeclarativeMatcher().Match(result)

	if cfg.Dialect != DialectDeclarative {
		t.Errorf("dialect = %q, want declarative", cfg.Dialect)
	}
	if cfg.Name != "shell" {
		t.Errorf("name = %q, want shell", cfg.Name)
	}
	if len(cfg.Remotes) != 1 {
		t.Fatalf("got %d remotes, want 1", len(cfg.Remotes))
	}
	if cfg.Remotes[0].Name != "catalog" {
		t.Errorf("remote name = %q, want catalog", cfg.Remotes[0].Name)
	}
	if want := "catalog@https://x/remoteEntry.js"; cfg.Remotes[0].ResolvedURLExpression != want {
		t.Errorf("remote url = %q, want %q", cfg.Remotes[0].ResolvedURLExpression, want)
	}
}

func TestDeclarativeMatcherModuleExports(t *testing.T) {
	result := parseJS(t, `
const { createModuleFederationConfig } = require('@module-federation/enhanced');

module.exports = createModuleFederationConfig({
  name: 'cjs-shell',
  exposes: { './Header': './src/Header' },
});
`)
	cfg := NewDeclarativeMatcher().Match(result)

	if cfg.Name != "cjs-shell" {
		t.Errorf("name = %q, want cjs-shell", cfg.Name)
	}
	if len(cfg.Exposes) != 1 || cfg.Exposes[0].OwnerConfigName != "cjs-shell" {
		t.Errorf("exposes = %+v", cfg.Exposes)
	}
}

func TestDeclarativeMatcherNoMatch(t *testing.T) {
	sources := []string{
		`export default defineConfig({ name: 'x' });`,
		`export default { name: 'x' };`,
		`const cfg = createModuleFederationConfig({ name: 'x' });`,
		`function createModuleFederationConfig() {}`,
	}
	for _, src := range sources {
		cfg := NewDeclarativeMatcher().Match(parseTS(t, src))
		if !cfg.Empty() {
			t.Errorf("source %q: config not empty: %+v", src, cfg)
		}
	}
}
