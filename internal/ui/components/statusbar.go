// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// Status describes what the client is doing right now.
type Status int

const (
	StatusReady Status = iota
	StatusThinking
	StatusStreaming
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "READY"
	case StatusThinking:
		return "THINKING"
	case StatusStreaming:
		return "STREAMING"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StatusBar is the bottom bar: model id, context usage, connection state,
// and the key shortcuts.
type StatusBar struct {
	ModelName     string
	TokenCount    int
	ContextLimit  int
	Status        Status
	Authenticated bool
	NearLimit     bool
	Width         int

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Width:  80,
		theme:  theme,
	}
}

// SetWidth sets the bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetTheme swaps the theme.
func (s *StatusBar) SetTheme(theme *styles.Theme) {
	s.theme = theme
}

// SetTokenUsage updates the context usage readout.
func (s *StatusBar) SetTokenUsage(used, limit int, nearLimit bool) {
	s.TokenCount = used
	s.ContextLimit = limit
	s.NearLimit = nearLimit
}

// View renders the bar.
func (s *StatusBar) View() string {
	var left []string

	if s.ModelName != "" {
		left = append(left, s.theme.StatusModel.Render(s.ModelName))
	}
	left = append(left, s.theme.StatusBar.Render(s.Status.String()))

	if s.Authenticated {
		left = append(left, s.theme.StatusBar.Render("LINKED"))
	}

	if s.ContextLimit > 0 {
		pct := float64(s.TokenCount) / float64(s.ContextLimit) * 100
		usage := fmt.Sprintf("CTX %s %.0f%%", styles.RenderProgressBar(10, pct), pct)
		if s.NearLimit {
			left = append(left, s.theme.StatusWarning.Render(usage+" !"))
		} else {
			left = append(left, s.theme.StatusTokens.Render(usage))
		}
	}

	leftStr := strings.Join(left, s.theme.StatusBar.Render(" | "))

	right := s.theme.ShortcutKey.Render("/help") +
		s.theme.ShortcutDesc.Render(" commands ") +
		s.theme.ShortcutKey.Render("ctrl+c") +
		s.theme.ShortcutDesc.Render(" quit")

	// Pad the middle so shortcuts sit at the right edge.
	gap := s.Width - runewidth.StringWidth(stripForWidth(leftStr)) - runewidth.StringWidth(stripForWidth(right))
	if gap < 1 {
		gap = 1
	}

	return leftStr + strings.Repeat(" ", gap) + right
}

// stripForWidth removes ANSI escape sequences so width math uses the
// visible characters only.
func stripForWidth(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
