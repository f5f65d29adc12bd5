// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full frame.
func (m Model) View() string {
	if !m.boot.Done() {
		return m.boot.View()
	}
	if m.keyPicker.Visible() {
		return m.keyPicker.View()
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.state == StateAwaiting {
		b.WriteString(m.spinner.View(m.theme))
		b.WriteString("\n")
	}

	if m.popup.HasCompletions() {
		b.WriteString(m.popup.View())
		b.WriteString("\n")
	}

	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())

	return m.theme.App.Render(b.String())
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("RETROTERM")
	subtitle := m.theme.HeaderSubtitle.Render(m.client.Model())
	line := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", subtitle)
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderInput() string {
	line := m.input.View()
	if m.flash != "" {
		line += "  " + m.theme.StatusWarning.Render(m.flash)
	}
	return m.theme.InputContainer.Render(line)
}
