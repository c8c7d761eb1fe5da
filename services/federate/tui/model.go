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
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
	"github.com/AleutianAI/AleutianFederate/services/federate/store"
)

// DoneMsg signals the tree view is complete and carries the folder
// bindings the user confirmed during the session.
type DoneMsg struct {
	Bindings map[string]store.RemoteBinding
}

// TreeModel is the bubbletea model for the workspace tree view.
//
// # Description
//
// Renders extracted configs as an expandable tree inside a viewport.
// Pressing "b" on a remote opens a huh form to bind it to a local folder;
// confirmed bindings write through the sidecar store immediately.
type TreeModel struct {
	root    string
	configs []federation.Config
	sidecar *store.Store

	tree   *treeNode
	rows   []flatRow
	cursor int

	viewport viewport.Model
	width    int
	height   int
	ready    bool

	// Binding flow state.
	bindForm   *huh.Form
	bindRemote string
	bindFolder string
	bindCmd    string
	bindings   map[string]store.RemoteBinding

	statusLine string
	quitting   bool
}

// NewTreeModel creates the tree model. The sidecar store may be nil;
// bindings are then kept in memory only.
func NewTreeModel(root string, configs []federation.Config, sidecar *store.Store) TreeModel {
	tree := buildTree(root, configs)
	return TreeModel{
		root:     root,
		configs:  configs,
		sidecar:  sidecar,
		tree:     tree,
		rows:     flatten(tree),
		bindings: make(map[string]store.RemoteBinding),
	}
}

// Init implements tea.Model.
func (m TreeModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// While the binding form is open, it owns the input.
	if m.bindForm != nil {
		form, cmd := m.bindForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.bindForm = f
		}
		if m.bindForm.State == huh.StateCompleted {
			m.completeBinding()
			m.bindForm = nil
			m.refreshTree()
		} else if m.bindForm.State == huh.StateAborted {
			m.bindForm = nil
			m.statusLine = "binding cancelled"
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := m.height - 4
		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(m.emitDone(), tea.Quit)

		case "j", "down":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				m.updateViewportContent()
			}

		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.updateViewportContent()
			}

		case "g", "home":
			m.cursor = 0
			m.updateViewportContent()

		case "G", "end":
			m.cursor = len(m.rows) - 1
			m.updateViewportContent()

		case "enter", " ":
			node := m.rows[m.cursor].node
			if len(node.children) > 0 {
				node.expanded = !node.expanded
				m.refreshTree()
			}

		case "b", "B":
			node := m.rows[m.cursor].node
			if node.kind == kindRemote {
				return m.openBindForm(node)
			}
			m.statusLine = "select a remote to bind"
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m TreeModel) View() string {
	if m.quitting {
		return ""
	}
	if m.bindForm != nil {
		return titleStyle.Render("Bind remote: "+m.bindRemote) + "\n\n" + m.bindForm.View()
	}
	if !m.ready {
		return "Loading...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Module Federation Workspace"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.statusLine != "" {
		b.WriteString(statusStyle.Render(m.statusLine))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("j/k move · enter expand · b bind remote · q quit"))
	return b.String()
}

// Bindings returns the folder bindings confirmed during the session.
func (m TreeModel) Bindings() map[string]store.RemoteBinding {
	return m.bindings
}

// emitDone builds the completion message for the caller.
func (m TreeModel) emitDone() tea.Cmd {
	bindings := m.bindings
	return func() tea.Msg {
		return DoneMsg{Bindings: bindings}
	}
}

// openBindForm starts the huh flow for one remote.
func (m TreeModel) openBindForm(node *treeNode) (tea.Model, tea.Cmd) {
	m.bindRemote = node.remoteName
	m.bindFolder = ""
	m.bindCmd = ""
	m.bindForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Local project folder").
				Description("Absolute path to the remote's project").
				Value(&m.bindFolder),
			huh.NewInput().
				Title("Start command").
				Description("Leave empty to use the detected package-manager script").
				Value(&m.bindCmd),
		),
	)
	return m, m.bindForm.Init()
}

// completeBinding records the confirmed binding and writes it through the
// sidecar store.
func (m *TreeModel) completeBinding() {
	folder := strings.TrimSpace(m.bindFolder)
	if folder == "" {
		m.statusLine = "binding skipped: no folder given"
		return
	}

	binding := store.RemoteBinding{
		Folder:       folder,
		StartCommand: strings.TrimSpace(m.bindCmd),
	}
	m.bindings[m.bindRemote] = binding

	if m.sidecar != nil {
		m.sidecar.Bind(m.bindRemote, binding)
		if err := m.sidecar.Save(); err != nil {
			m.statusLine = "binding saved in memory; sidecar write failed: " + err.Error()
			return
		}
	}
	m.statusLine = "bound " + m.bindRemote + " to " + folder

	// Reflect the binding in the tree badges.
	for i := range m.configs {
		for j := range m.configs[i].Remotes {
			if m.configs[i].Remotes[j].Name == m.bindRemote {
				m.configs[i].Remotes[j].LocalProjectFolder = folder
			}
		}
	}
	m.tree = buildTree(m.root, m.configs)
}

// refreshTree reflattens after an expand/collapse or rebuild and clamps
// the cursor.
func (m *TreeModel) refreshTree() {
	m.rows = flatten(m.tree)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	m.updateViewportContent()
}

// updateViewportContent rerenders the visible rows.
func (m *TreeModel) updateViewportContent() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, row := range m.rows {
		b.WriteString(m.renderRow(row, i == m.cursor))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderRow renders one tree row with indent, badges, and styling.
func (m *TreeModel) renderRow(row flatRow, selected bool) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", row.depth))

	if len(row.node.children) > 0 {
		if row.node.expanded {
			b.WriteString("▾ ")
		} else {
			b.WriteString("▸ ")
		}
	} else {
		b.WriteString("  ")
	}

	label := row.node.label
	switch row.node.kind {
	case kindConfig:
		label = configStyle.Render(label)
	case kindRemote:
		if row.node.dynamic {
			label = dynamicStyle.Render(label)
		} else {
			label = remoteStyle.Render(label)
		}
	case kindShared:
		label = sharedStyle.Render(label)
	}
	b.WriteString(label)

	if row.node.badge != "" {
		b.WriteString(" ")
		b.WriteString(badgeStyle.Render(row.node.badge))
	}
	if row.node.detail != "" {
		b.WriteString(" ")
		b.WriteString(detailStyle.Render(row.node.detail))
	}
	if row.node.dynamic {
		b.WriteString(" ")
		b.WriteString(dynamicStyle.Render("(dynamic)"))
	}

	line := b.String()
	if selected {
		return selectedStyle.Render(line)
	}
	return line
}

// Styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	configStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	remoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	sharedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	dynamicStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("238")).
			Padding(0, 1)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
