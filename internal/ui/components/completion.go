// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/retroterm/internal/commands"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// COMPLETION POPUP
// =============================================================================

// CompletionPopup displays slash-command suggestions above the input while
// the user is typing a command. Tab or arrow keys cycle the selection.
type CompletionPopup struct {
	completions []commands.Completion
	selected    int
	maxVisible  int
	width       int
	theme       *styles.Theme
}

// NewCompletionPopup creates an empty popup.
func NewCompletionPopup(theme *styles.Theme) *CompletionPopup {
	return &CompletionPopup{
		maxVisible: 8,
		width:      50,
		theme:      theme,
	}
}

// SetCompletions replaces the suggestion set and resets the selection.
func (c *CompletionPopup) SetCompletions(completions []commands.Completion) {
	c.completions = completions
	c.selected = 0
}

// HasCompletions reports whether anything is showing.
func (c *CompletionPopup) HasCompletions() bool {
	return len(c.completions) > 0
}

// Clear drops all suggestions.
func (c *CompletionPopup) Clear() {
	c.completions = nil
	c.selected = 0
}

// Next moves the selection down, wrapping.
func (c *CompletionPopup) Next() {
	if len(c.completions) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.completions)
}

// Prev moves the selection up, wrapping.
func (c *CompletionPopup) Prev() {
	if len(c.completions) == 0 {
		return
	}
	c.selected--
	if c.selected < 0 {
		c.selected = len(c.completions) - 1
	}
}

// Selected returns the highlighted completion, or nil when empty.
func (c *CompletionPopup) Selected() *commands.Completion {
	if c.selected < 0 || c.selected >= len(c.completions) {
		return nil
	}
	return &c.completions[c.selected]
}

// SetWidth sets the popup width.
func (c *CompletionPopup) SetWidth(width int) {
	if width < 24 {
		width = 24
	}
	c.width = width
}

// SetTheme swaps the theme.
func (c *CompletionPopup) SetTheme(theme *styles.Theme) {
	c.theme = theme
}

// View renders the popup box.
func (c *CompletionPopup) View() string {
	if len(c.completions) == 0 {
		return ""
	}

	// Scrolling window keeping the selection visible.
	start := 0
	end := len(c.completions)
	if end > c.maxVisible {
		start = c.selected - c.maxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.maxVisible
		if end > len(c.completions) {
			end = len(c.completions)
			start = end - c.maxVisible
		}
	}

	items := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, c.renderItem(c.completions[i], i == c.selected))
	}

	return c.theme.CompletionPopup.Width(c.width).Render(strings.Join(items, "\n"))
}

func (c *CompletionPopup) renderItem(comp commands.Completion, selected bool) string {
	valueWidth := 18
	descWidth := c.width - valueWidth - 4
	if descWidth < 0 {
		descWidth = 0
	}

	value := TruncateToWidth(comp.Value, valueWidth)
	desc := TruncateToWidth(comp.Description, descWidth)

	valueStyle := c.theme.CompletionItem.Width(valueWidth)
	descStyle := c.theme.CompletionDesc.Width(descWidth)
	marker := "  "
	if selected {
		valueStyle = c.theme.CompletionSelected.Width(valueWidth)
		descStyle = c.theme.CompletionItem.Width(descWidth)
		marker = "> "
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		c.theme.CompletionMatch.Render(marker),
		valueStyle.Render(value),
		descStyle.Render(desc),
	)
}
