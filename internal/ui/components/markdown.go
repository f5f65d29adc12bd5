// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders finalized model replies as terminal markdown.
// Glamour renderers are expensive to construct, so one is cached per width
// and rebuilt only when the terminal is resized.
type MarkdownRenderer struct {
	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer wrapping at the given width.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	return &MarkdownRenderer{width: width}
}

// SetWidth changes the wrap width. The underlying glamour renderer is
// rebuilt lazily on the next Render call.
func (r *MarkdownRenderer) SetWidth(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width != r.width {
		r.width = width
		r.renderer = nil
	}
}

// Render converts markdown to styled terminal output. On any renderer
// failure the raw text comes back unchanged so a reply is never lost to a
// formatting error.
func (r *MarkdownRenderer) Render(markdown string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer == nil {
		width := r.width
		if width < 20 {
			width = 20
		}
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return markdown
		}
		r.renderer = tr
	}

	out, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// STREAMING CODE HIGHLIGHT (chroma)
// =============================================================================

// Glamour cannot render partial markdown mid-stream, so streaming text gets
// a lighter treatment: fenced code blocks are highlighted with chroma and
// everything else passes through raw.

// HighlightCodeBlocks replaces complete ``` fenced blocks in text with
// syntax-highlighted versions. An unterminated fence is left untouched.
func HighlightCodeBlocks(text string) string {
	lines := strings.Split(text, "\n")

	var out []string
	var code []string
	var language string
	inBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				out = append(out, highlightCode(strings.Join(code, "\n"), language))
				code = nil
				language = ""
				inBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inBlock = true
			}
			continue
		}
		if inBlock {
			code = append(code, line)
		} else {
			out = append(out, line)
		}
	}

	// Unterminated fence: the stream has not produced the closing marker
	// yet, emit the partial block as-is.
	if inBlock {
		out = append(out, "```"+language)
		out = append(out, code...)
	}

	return strings.Join(out, "\n")
}

// highlightCode applies chroma terminal highlighting, falling back to the
// plain source when the language is unknown or formatting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
