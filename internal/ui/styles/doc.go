// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the retroterm TUI.
//
// Themes are fixed named palettes registered in Palettes; the theme command
// validates against that registry and a Theme is rebuilt from the chosen
// palette at runtime.
//
// # Key Types
//
//   - Palette: Static color set for one named theme
//   - Theme: All lipgloss styles for the application, built from a Palette
//   - SpinnerConfig: ASCII spinner animation frames and timing
//
// # Usage
//
//	theme := styles.NewTheme("phosphor")
//	fmt.Println(theme.Header.Render("RETROTERM"))
package styles
