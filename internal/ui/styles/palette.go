// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the retroterm TUI.
package styles

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultTheme is the palette used when no theme has been chosen.
const DefaultTheme = "phosphor"

// =============================================================================
// PALETTE TYPE
// =============================================================================

// Palette is a fixed set of colors defining one named theme.
// Palettes are static data; all behavior lives in Theme.
type Palette struct {
	Name        string
	Description string

	// Core surface and text colors
	Background lipgloss.Color
	Surface    lipgloss.Color
	Text       lipgloss.Color
	TextDim    lipgloss.Color
	TextMuted  lipgloss.Color

	// Accent drives borders, the prompt, and highlights
	Accent     lipgloss.Color
	AccentDim  lipgloss.Color
	AccentGlow lipgloss.Color

	// Per-role message colors
	UserFg   lipgloss.Color
	ModelFg  lipgloss.Color
	SystemFg lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// =============================================================================
// THEME REGISTRY
// =============================================================================

// Palettes is the registry of named themes. The theme command validates
// against this map; nothing else defines what a valid theme name is.
var Palettes = map[string]Palette{
	"phosphor": {
		Name:        "phosphor",
		Description: "Green phosphor CRT",
		Background:  lipgloss.Color("#041204"),
		Surface:     lipgloss.Color("#0A1F0A"),
		Text:        lipgloss.Color("#33FF66"),
		TextDim:     lipgloss.Color("#1FA344"),
		TextMuted:   lipgloss.Color("#11662B"),
		Accent:      lipgloss.Color("#66FF99"),
		AccentDim:   lipgloss.Color("#1F7A3D"),
		AccentGlow:  lipgloss.Color("#B3FFCC"),
		UserFg:      lipgloss.Color("#99FFBB"),
		ModelFg:     lipgloss.Color("#33FF66"),
		SystemFg:    lipgloss.Color("#1FA344"),
		Success:     lipgloss.Color("#66FF99"),
		Warning:     lipgloss.Color("#CCFF66"),
		Error:       lipgloss.Color("#FF6666"),
	},
	"amber": {
		Name:        "amber",
		Description: "Amber monochrome terminal",
		Background:  lipgloss.Color("#140A00"),
		Surface:     lipgloss.Color("#241400"),
		Text:        lipgloss.Color("#FFB000"),
		TextDim:     lipgloss.Color("#B37B00"),
		TextMuted:   lipgloss.Color("#664700"),
		Accent:      lipgloss.Color("#FFCC33"),
		AccentDim:   lipgloss.Color("#8A6200"),
		AccentGlow:  lipgloss.Color("#FFE099"),
		UserFg:      lipgloss.Color("#FFD966"),
		ModelFg:     lipgloss.Color("#FFB000"),
		SystemFg:    lipgloss.Color("#B37B00"),
		Success:     lipgloss.Color("#CCFF66"),
		Warning:     lipgloss.Color("#FF9933"),
		Error:       lipgloss.Color("#FF5C33"),
	},
	"cobalt": {
		Name:        "cobalt",
		Description: "Cool blue vector display",
		Background:  lipgloss.Color("#020817"),
		Surface:     lipgloss.Color("#0A1530"),
		Text:        lipgloss.Color("#66B3FF"),
		TextDim:     lipgloss.Color("#3D7AB8"),
		TextMuted:   lipgloss.Color("#1F4266"),
		Accent:      lipgloss.Color("#33CCFF"),
		AccentDim:   lipgloss.Color("#1F668A"),
		AccentGlow:  lipgloss.Color("#99E6FF"),
		UserFg:      lipgloss.Color("#99CCFF"),
		ModelFg:     lipgloss.Color("#66B3FF"),
		SystemFg:    lipgloss.Color("#3D7AB8"),
		Success:     lipgloss.Color("#66FFCC"),
		Warning:     lipgloss.Color("#FFCC66"),
		Error:       lipgloss.Color("#FF6680"),
	},
	"plasma": {
		Name:        "plasma",
		Description: "Magenta plasma glow",
		Background:  lipgloss.Color("#120216"),
		Surface:     lipgloss.Color("#220A2B"),
		Text:        lipgloss.Color("#E666FF"),
		TextDim:     lipgloss.Color("#9C3DB8"),
		TextMuted:   lipgloss.Color("#591F66"),
		Accent:      lipgloss.Color("#FF66E6"),
		AccentDim:   lipgloss.Color("#8A1F7A"),
		AccentGlow:  lipgloss.Color("#FFB3F2"),
		UserFg:      lipgloss.Color("#FF99EE"),
		ModelFg:     lipgloss.Color("#E666FF"),
		SystemFg:    lipgloss.Color("#9C3DB8"),
		Success:     lipgloss.Color("#99FF99"),
		Warning:     lipgloss.Color("#FFCC66"),
		Error:       lipgloss.Color("#FF6666"),
	},
	"paper": {
		Name:        "paper",
		Description: "Ink on paper, light background",
		Background:  lipgloss.Color("#F5F1E8"),
		Surface:     lipgloss.Color("#EAE4D6"),
		Text:        lipgloss.Color("#2B2B26"),
		TextDim:     lipgloss.Color("#57554C"),
		TextMuted:   lipgloss.Color("#8A877A"),
		Accent:      lipgloss.Color("#704214"),
		AccentDim:   lipgloss.Color("#A67B3D"),
		AccentGlow:  lipgloss.Color("#8F5B1F"),
		UserFg:      lipgloss.Color("#1F3D66"),
		ModelFg:     lipgloss.Color("#2B2B26"),
		SystemFg:    lipgloss.Color("#57554C"),
		Success:     lipgloss.Color("#2E6B2E"),
		Warning:     lipgloss.Color("#A66B00"),
		Error:       lipgloss.Color("#A62626"),
	},
}

// LookupPalette returns the palette for a theme name.
func LookupPalette(name string) (Palette, bool) {
	p, ok := Palettes[name]
	return p, ok
}

// ThemeNames returns a sorted slice of all registered theme names.
func ThemeNames() []string {
	names := make([]string, 0, len(Palettes))
	for name := range Palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// ACCESSIBILITY: Shapes alongside colors for colorblind users
// =============================================================================

// StatusIndicatorSet contains text/shape indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
	Active  string
}

// StatusIndicators provides ASCII shape indicators alongside colors.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}

// RenderStatus renders a status message with the matching shape indicator.
func RenderStatus(success bool, message string) string {
	if success {
		return fmt.Sprintf("%s %s", StatusIndicators.Success, message)
	}
	return fmt.Sprintf("%s %s", StatusIndicators.Error, message)
}
