// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the retroterm TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for one palette.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	HasTrueColor bool
	ColorProfile termenv.Profile

	// The palette this theme was built from
	Palette Palette

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserMessage    lipgloss.Style
	UserLabel      lipgloss.Style
	ModelMessage   lipgloss.Style
	ModelLabel     lipgloss.Style
	SystemMessage  lipgloss.Style
	SystemLabel    lipgloss.Style
	CitationTitle  lipgloss.Style
	CitationURI    lipgloss.Style
	StreamCursor   lipgloss.Style
	MessageStats   lipgloss.Style
	ImageCaption   lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar       lipgloss.Style
	StatusModel     lipgloss.Style
	StatusTokens    lipgloss.Style
	StatusWarning   lipgloss.Style
	ShortcutKey     lipgloss.Style
	ShortcutDesc    lipgloss.Style

	// ==========================================================================
	// COMPLETION POPUP STYLES
	// ==========================================================================

	CompletionPopup    lipgloss.Style
	CompletionItem     lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionMatch    lipgloss.Style
	CompletionDesc     lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// ERROR BOX STYLES
	// ==========================================================================

	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style
	ErrorTip     lipgloss.Style

	// ==========================================================================
	// BOOT SCREEN STYLES
	// ==========================================================================

	BootBox     lipgloss.Style
	BootLogo    lipgloss.Style
	BootVersion lipgloss.Style
	BootLine    lipgloss.Style
}

// NewTheme builds a theme from a named palette. Unknown names fall back
// to the default palette so the UI always has something to render with.
func NewTheme(name string) *Theme {
	palette, ok := LookupPalette(name)
	if !ok {
		palette = Palettes[DefaultTheme]
	}

	colorProfile := termenv.ColorProfile()

	t := &Theme{
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
		Palette:      palette,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles from the palette.
func (t *Theme) initStyles() {
	p := t.Palette

	// App container
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(p.AccentDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.AccentGlow)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.TextDim)

	// Messages
	t.UserMessage = lipgloss.NewStyle().
		Foreground(p.UserFg)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.UserFg)

	t.ModelMessage = lipgloss.NewStyle().
		Foreground(p.ModelFg)

	t.ModelLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.SystemMessage = lipgloss.NewStyle().
		Foreground(p.SystemFg).
		Italic(true)

	t.SystemLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.SystemFg)

	t.CitationTitle = lipgloss.NewStyle().
		Foreground(p.TextDim)

	t.CitationURI = lipgloss.NewStyle().
		Foreground(p.AccentDim).
		Underline(true)

	t.StreamCursor = lipgloss.NewStyle().
		Foreground(p.AccentGlow).
		Bold(true)

	t.MessageStats = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.ImageCaption = lipgloss.NewStyle().
		Foreground(p.TextDim).
		Italic(true)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.AccentDim)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.InputText = lipgloss.NewStyle().
		Foreground(p.Text)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.TextDim)

	t.StatusModel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.StatusTokens = lipgloss.NewStyle().
		Foreground(p.TextDim)

	t.StatusWarning = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Warning)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Completion popup
	t.CompletionPopup = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.AccentDim).
		Padding(0, 1)

	t.CompletionItem = lipgloss.NewStyle().
		Foreground(p.TextDim)

	t.CompletionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Background).
		Background(p.Accent)

	t.CompletionMatch = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.AccentGlow)

	t.CompletionDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Spinner
	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(p.TextDim).
		Italic(true)

	// Error box
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.Error).
		Padding(0, 1)

	t.ErrorTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Error)

	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(p.Text)

	t.ErrorTip = lipgloss.NewStyle().
		Foreground(p.TextDim).
		Italic(true)

	// Boot screen
	t.BootBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(p.Accent).
		Padding(1, 3)

	t.BootLogo = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.AccentGlow)

	t.BootVersion = lipgloss.NewStyle().
		Foreground(p.TextDim)

	t.BootLine = lipgloss.NewStyle().
		Foreground(p.Text)
}

// =============================================================================
// LAYOUT MODES
// =============================================================================

// LayoutMode describes how much horizontal room the terminal offers.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota
	LayoutMedium
	LayoutWide
)

// Layout returns the layout mode for a terminal width.
func Layout(width int) LayoutMode {
	switch {
	case width < 60:
		return LayoutNarrow
	case width < 100:
		return LayoutMedium
	default:
		return LayoutWide
	}
}

// SetSize records the current terminal dimensions on the theme.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
