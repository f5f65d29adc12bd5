// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// DISPLAY-WIDTH WRAPPING
// =============================================================================

// UNICODE: all wrapping goes through go-runewidth so wide characters and
// emoji count their real cell width instead of their rune count.

// WrapText wraps text to the given display width, breaking at word
// boundaries where possible. Lines that already fit pass through unchanged.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		if runewidth.StringWidth(line) <= width {
			out.WriteString(line)
			continue
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

// wrapLine wraps a single overlong line, preferring word boundaries and
// falling back to a hard break for words wider than the whole line.
func wrapLine(line string, width int) string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return ""
	}

	var out strings.Builder
	var cur strings.Builder
	curWidth := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(cur.String())
		cur.Reset()
		curWidth = 0
	}

	for _, word := range words {
		w := runewidth.StringWidth(word)

		if w > width {
			// Word wider than the line, hard-break it rune by rune.
			flush()
			for _, r := range word {
				rw := runewidth.RuneWidth(r)
				if curWidth+rw > width {
					flush()
				}
				cur.WriteRune(r)
				curWidth += rw
			}
			continue
		}

		sep := 0
		if curWidth > 0 {
			sep = 1
		}
		if curWidth+sep+w > width {
			flush()
		}
		if curWidth > 0 {
			cur.WriteByte(' ')
			curWidth++
		}
		cur.WriteString(word)
		curWidth += w
	}
	flush()

	return out.String()
}

// MaxLineWidth returns the display width of the widest line.
func MaxLineWidth(text string) int {
	max := 0
	for _, line := range strings.Split(text, "\n") {
		if w := runewidth.StringWidth(line); w > max {
			max = w
		}
	}
	return max
}

// TruncateToWidth shortens s to at most width display cells, appending
// "..." when anything was cut.
func TruncateToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
