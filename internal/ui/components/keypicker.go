// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// API KEY PICKER OVERLAY
// =============================================================================

// KeyPicker is a modal overlay for entering an API key. Input is masked;
// the key never echoes to the screen.
type KeyPicker struct {
	input   textinput.Model
	errMsg  string
	visible bool
	width   int
	height  int
	theme   *styles.Theme
}

// NewKeyPicker creates a hidden key picker.
func NewKeyPicker(theme *styles.Theme) *KeyPicker {
	ti := textinput.New()
	ti.Placeholder = "paste API key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.TextStyle = theme.InputText
	ti.PlaceholderStyle = theme.InputPlaceholder

	return &KeyPicker{
		input: ti,
		theme: theme,
	}
}

// Open shows the overlay and focuses its input.
func (k *KeyPicker) Open() tea.Cmd {
	k.visible = true
	k.errMsg = ""
	k.input.SetValue("")
	return k.input.Focus()
}

// Close hides the overlay and wipes the entered value.
func (k *KeyPicker) Close() {
	k.visible = false
	k.input.SetValue("")
	k.input.Blur()
}

// Visible reports whether the overlay is showing.
func (k *KeyPicker) Visible() bool {
	return k.visible
}

// Value returns the entered key.
func (k *KeyPicker) Value() string {
	return strings.TrimSpace(k.input.Value())
}

// SetError shows a validation message under the input.
func (k *KeyPicker) SetError(msg string) {
	k.errMsg = msg
}

// SetSize records the terminal dimensions for centering.
func (k *KeyPicker) SetSize(width, height int) {
	k.width = width
	k.height = height
}

// Update forwards key events to the masked input.
func (k *KeyPicker) Update(msg tea.Msg) tea.Cmd {
	if !k.visible {
		return nil
	}
	var cmd tea.Cmd
	k.input, cmd = k.input.Update(msg)
	return cmd
}

// View renders the overlay box.
func (k *KeyPicker) View() string {
	if !k.visible {
		return ""
	}

	lines := []string{
		k.theme.HeaderTitle.Render("ENTER API KEY"),
		"",
		k.input.View(),
	}
	if k.errMsg != "" {
		lines = append(lines, "", k.theme.ErrorMessage.Render(k.errMsg))
	}
	lines = append(lines, "", k.theme.ShortcutDesc.Render("enter save / esc cancel"))

	box := k.theme.ErrorBox.BorderForeground(k.theme.Palette.Accent).
		Render(strings.Join(lines, "\n"))

	if k.width > 0 && k.height > 0 {
		return lipgloss.Place(k.width, k.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
