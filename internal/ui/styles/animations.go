// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the retroterm TUI.
package styles

import (
	"strings"
	"time"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// LineSpinner - simple line rotation, shown while awaiting the first chunk
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// DotsSpinner - classic three-dot animation
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// BlockSpinner - growing/shrinking progress
var BlockSpinner = SpinnerConfig{
	Frames: []string{"[", "[=", "[==", "[===", "[====", "[=====", "[====", "[===", "[==", "[="},
	FPS:    15,
}

// ScanSpinner - CRT scanline sweep
var ScanSpinner = SpinnerConfig{
	Frames: []string{"[=   ]", "[ =  ]", "[  = ]", "[   =]", "[  = ]", "[ =  ]"},
	FPS:    8,
}

// =============================================================================
// BOOT SEQUENCE
// =============================================================================

// BootLines are printed one at a time by the boot animation before the
// chat view takes over.
var BootLines = []string{
	"RETROTERM BIOS v2.1",
	"MEMORY CHECK .......... OK",
	"VIDEO MODE ............ TEXT 80x25",
	"LINK LAYER ............ ONLINE",
	"LOADING SHELL ......... DONE",
}

// BootLineInterval is the delay between boot lines.
var BootLineInterval = 120 * time.Millisecond

// =============================================================================
// PROGRESS INDICATORS
// =============================================================================

// Progress bar characters for the context usage display.
var (
	ProgressFull  = "#"
	ProgressEmpty = "-"
)

// RenderProgressBar creates a progress bar string.
// width: total width of the bar in characters
// percent: 0-100 percentage complete
func RenderProgressBar(width int, percent float64) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(width) * percent / 100)

	var sb strings.Builder
	sb.Grow(width)
	for i := 0; i < width; i++ {
		if i < filled {
			sb.WriteString(ProgressFull)
		} else {
			sb.WriteString(ProgressEmpty)
		}
	}
	return sb.String()
}

// =============================================================================
// TYPING ANIMATION
// =============================================================================

// StreamCursorChar is appended to the active message while streaming.
var StreamCursorChar = "_"

// CursorBlinkRate is the rate at which the cursor blinks.
var CursorBlinkRate = 530 * time.Millisecond
