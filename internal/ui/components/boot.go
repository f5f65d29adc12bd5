// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// BOOT SCREEN
// =============================================================================

// BootTickMsg advances the boot animation by one line.
type BootTickMsg struct{}

// BootScreen plays the retro boot sequence: the BIOS lines appear one at a
// time, then the chat view takes over.
type BootScreen struct {
	Version string
	visible int
	done    bool
	width   int
	height  int
	theme   *styles.Theme
}

// NewBootScreen creates the boot screen.
func NewBootScreen(theme *styles.Theme, version string) *BootScreen {
	return &BootScreen{
		Version: version,
		theme:   theme,
	}
}

// Start returns the command that begins the animation.
func (b *BootScreen) Start() tea.Cmd {
	return bootTick()
}

// Skip ends the animation immediately.
func (b *BootScreen) Skip() {
	b.visible = len(styles.BootLines)
	b.done = true
}

// Done reports whether the sequence has finished.
func (b *BootScreen) Done() bool {
	return b.done
}

// SetSize records the terminal dimensions for centering.
func (b *BootScreen) SetSize(width, height int) {
	b.width = width
	b.height = height
}

// Update advances the animation on each tick.
func (b *BootScreen) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(BootTickMsg); !ok {
		return nil
	}
	if b.done {
		return nil
	}
	b.visible++
	if b.visible >= len(styles.BootLines) {
		b.done = true
		return nil
	}
	return bootTick()
}

// View renders the boot box centered in the terminal.
func (b *BootScreen) View() string {
	var lines []string
	lines = append(lines, b.theme.BootLogo.Render("R E T R O T E R M"))
	if b.Version != "" {
		lines = append(lines, b.theme.BootVersion.Render("v"+b.Version))
	}
	lines = append(lines, "")

	for i := 0; i < b.visible && i < len(styles.BootLines); i++ {
		lines = append(lines, b.theme.BootLine.Render(styles.BootLines[i]))
	}

	box := b.theme.BootBox.Render(strings.Join(lines, "\n"))

	if b.width > 0 && b.height > 0 {
		return lipgloss.Place(b.width, b.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func bootTick() tea.Cmd {
	return tea.Tick(styles.BootLineInterval, func(time.Time) tea.Msg {
		return BootTickMsg{}
	})
}
