// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
	"github.com/AleutianAI/AleutianFederate/services/federate/store"
)

// RunTree shows the workspace tree.
//
// # Description
//
// On a TTY this runs the interactive bubbletea view and returns the
// bindings the user confirmed. Off-TTY (pipes, CI) it prints the plain
// indented tree to out and returns no bindings.
func RunTree(root string, configs []federation.Config, sidecar *store.Store, out io.Writer) (map[string]store.RemoteBinding, error) {
	if out == nil {
		out = os.Stdout
	}

	if !isInteractive() {
		if _, err := io.WriteString(out, RenderPlainTree(root, configs)); err != nil {
			return nil, err
		}
		return map[string]store.RemoteBinding{}, nil
	}

	model := NewTreeModel(root, configs, sidecar)
	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("run tree view: %w", err)
	}

	if m, ok := final.(TreeModel); ok {
		return m.Bindings(), nil
	}
	return map[string]store.RemoteBinding{}, nil
}

// isInteractive reports whether stdout is a terminal.
func isInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
