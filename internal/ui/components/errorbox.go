// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"strings"

	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// ERROR BOX
// =============================================================================

// ErrorBox renders a bordered error with a title, message, and optional
// recovery tip.
type ErrorBox struct {
	Title   string
	Message string
	Tip     string
	Width   int
}

// RenderErrorBox renders the box with the given theme.
func (e ErrorBox) Render(theme *styles.Theme) string {
	width := e.Width
	if width < 24 {
		width = 24
	}

	title := e.Title
	if title == "" {
		title = "ERROR"
	}

	lines := []string{
		theme.ErrorTitle.Render(title),
		theme.ErrorMessage.Render(WrapText(e.Message, width-4)),
	}
	if e.Tip != "" {
		lines = append(lines, theme.ErrorTip.Render(WrapText("tip: "+e.Tip, width-4)))
	}

	return theme.ErrorBox.Width(width).Render(strings.Join(lines, "\n"))
}
