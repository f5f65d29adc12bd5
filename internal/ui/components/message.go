// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// MESSAGE VIEW
// =============================================================================

// MessageView renders a single chat message in the retro terminal style:
// a bold role label followed by the body, with citations, image captions,
// and the stats line below model replies.
type MessageView struct {
	Message  *model.Message
	Width    int
	IsLatest bool

	theme    *styles.Theme
	markdown *MarkdownRenderer
}

// NewMessageView creates a view for one message. markdown may be shared
// across views; pass nil to skip markdown rendering entirely.
func NewMessageView(msg *model.Message, theme *styles.Theme, markdown *MarkdownRenderer) *MessageView {
	return &MessageView{
		Message:  msg,
		Width:    80,
		theme:    theme,
		markdown: markdown,
	}
}

// SetWidth sets the render width.
func (v *MessageView) SetWidth(width int) {
	v.Width = width
}

// View renders the message.
func (v *MessageView) View() string {
	if v.Message == nil {
		return ""
	}
	switch v.Message.Role {
	case model.RoleUser:
		return v.renderUser()
	case model.RoleModel:
		return v.renderModel()
	default:
		return v.renderSystem()
	}
}

func (v *MessageView) bodyWidth() int {
	w := v.Width - 2
	if w < 20 {
		w = 20
	}
	return w
}

func (v *MessageView) renderUser() string {
	label := v.theme.UserLabel.Render("YOU>")
	body := v.theme.UserMessage.Render(WrapText(v.Message.Content, v.bodyWidth()))
	return label + " " + body
}

func (v *MessageView) renderModel() string {
	label := "MODEL>"
	if v.Message.ModelName != "" {
		label = v.Message.ModelName + ">"
	}
	header := v.theme.ModelLabel.Render(label)

	content := v.Message.Content

	var body string
	if v.Message.IsStreaming {
		// STREAMING: glamour cannot take partial markdown, so stream text
		// gets chroma-highlighted code fences and a trailing cursor.
		body = HighlightCodeBlocks(content)
		body += v.theme.StreamCursor.Render(styles.StreamCursorChar)
		body = WrapText(body, v.bodyWidth())
	} else if v.markdown != nil {
		v.markdown.SetWidth(v.bodyWidth())
		body = v.markdown.Render(content)
	} else {
		body = WrapText(content, v.bodyWidth())
	}

	out := lipgloss.JoinVertical(lipgloss.Left, header, body)

	if caption := v.renderImageCaption(); caption != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, caption)
	}
	if citations := v.renderCitations(); citations != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, citations)
	}
	if !v.Message.IsStreaming {
		if stats := v.Message.FormatStats(); stats != "" {
			out = lipgloss.JoinVertical(lipgloss.Left, out, v.theme.MessageStats.Render(stats))
		}
	}
	return out
}

func (v *MessageView) renderSystem() string {
	body := WrapText(v.Message.Content, v.bodyWidth())
	return v.theme.SystemMessage.Render(body)
}

// renderCitations renders the sources list under a grounded reply.
func (v *MessageView) renderCitations() string {
	if len(v.Message.Citations) == 0 {
		return ""
	}

	lines := make([]string, 0, len(v.Message.Citations)+1)
	lines = append(lines, v.theme.CitationTitle.Render("Sources:"))
	for i, c := range v.Message.Citations {
		title := c.Title
		if title == "" {
			title = c.URI
		}
		line := fmt.Sprintf("  [%d] %s", i+1, TruncateToWidth(title, v.bodyWidth()-8))
		lines = append(lines, v.theme.CitationTitle.Render(line))
		if c.URI != "" && c.URI != title {
			lines = append(lines, "      "+v.theme.CitationURI.Render(TruncateToWidth(c.URI, v.bodyWidth()-8)))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderImageCaption describes an attached generated image. The terminal
// cannot draw the pixels, so the caption carries the format, aspect ratio,
// and payload size.
func (v *MessageView) renderImageCaption() string {
	img := v.Message.Image
	if img == nil {
		return ""
	}
	caption := fmt.Sprintf("[image: %s, %s, %.1f KB]",
		img.MIMEType, img.Aspect, float64(len(img.Data))/1024)
	return v.theme.ImageCaption.Render(caption)
}

// =============================================================================
// MESSAGE LIST
// =============================================================================

// MessageList renders the whole log, one MessageView per entry with a blank
// line between messages.
type MessageList struct {
	Width    int
	theme    *styles.Theme
	markdown *MarkdownRenderer
}

// NewMessageList creates a message list renderer.
func NewMessageList(theme *styles.Theme) *MessageList {
	return &MessageList{
		Width:    80,
		theme:    theme,
		markdown: NewMarkdownRenderer(78),
	}
}

// SetWidth sets the list width.
func (l *MessageList) SetWidth(width int) {
	l.Width = width
}

// SetTheme swaps the theme, picked up on the next View.
func (l *MessageList) SetTheme(theme *styles.Theme) {
	l.theme = theme
}

// View renders all messages.
func (l *MessageList) View(messages []*model.Message) string {
	if len(messages) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(messages)*2-1)
	for i, msg := range messages {
		mv := NewMessageView(msg, l.theme, l.markdown)
		mv.SetWidth(l.Width)
		mv.IsLatest = i == len(messages)-1
		rendered = append(rendered, mv.View())
		if i < len(messages)-1 {
			rendered = append(rendered, "")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}
