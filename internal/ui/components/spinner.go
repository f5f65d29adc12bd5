// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// SPINNER
// =============================================================================

// Spinner wraps the bubbles spinner with the retroterm frame sets and an
// elapsed-time readout. Shown between sending a request and the first chunk.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	active    bool
	showTimer bool
}

// NewSpinner creates a spinner with the line frame set.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	s.Style = theme.Spinner

	return Spinner{
		spinner:   s,
		message:   "Thinking",
		showTimer: true,
	}
}

// SetConfig swaps the animation frames.
func (s *Spinner) SetConfig(cfg styles.SpinnerConfig) {
	s.spinner.Spinner = spinner.Spinner{
		Frames: cfg.Frames,
		FPS:    cfg.Duration(),
	}
}

// SetMessage sets the text next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Start activates the spinner and returns its tick command.
func (s *Spinner) Start() tea.Cmd {
	s.active = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.active = false
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	return s.active
}

// Elapsed returns the time since Start.
func (s *Spinner) Elapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner line.
func (s Spinner) View(theme *styles.Theme) string {
	if !s.active {
		return ""
	}

	out := s.spinner.View() + " " + theme.ThinkingText.Render(s.message+"...")
	if s.showTimer && !s.startTime.IsZero() {
		out += theme.MessageStats.Render(fmt.Sprintf(" (%s)", formatElapsed(time.Since(s.startTime))))
	}
	return out
}

// formatElapsed formats a duration as "12s" or "1m 05s".
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %02ds", seconds/60, seconds%60)
}
