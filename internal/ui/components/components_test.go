// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/retroterm/internal/commands"
	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewTheme(styles.DefaultTheme)
}

// =============================================================================
// WRAPPING
// =============================================================================

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  []string // expected lines
	}{
		{
			name:  "short line passes through",
			input: "hello world",
			width: 40,
			want:  []string{"hello world"},
		},
		{
			name:  "breaks at word boundary",
			input: "the quick brown fox jumps",
			width: 10,
			want:  []string{"the quick", "brown fox", "jumps"},
		},
		{
			name:  "preserves existing newlines",
			input: "one\ntwo",
			width: 40,
			want:  []string{"one", "two"},
		},
		{
			name:  "zero width is a no-op",
			input: "anything at all",
			width: 0,
			want:  []string{"anything at all"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Split(WrapText(tt.input, tt.width), "\n")
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %q, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWrapTextWideCharacters(t *testing.T) {
	// Each CJK character occupies two cells, so four of them exceed width 6.
	wrapped := WrapText("日本語のテキスト", 6)
	for _, line := range strings.Split(wrapped, "\n") {
		if w := MaxLineWidth(line); w > 6 {
			t.Errorf("line %q has display width %d, want <= 6", line, w)
		}
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := TruncateToWidth("short", 20); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
	got := TruncateToWidth("a very long string indeed", 10)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ellipsis suffix", got)
	}
	if MaxLineWidth(got) > 10 {
		t.Errorf("truncated to %d cells, want <= 10", MaxLineWidth(got))
	}
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

func TestMessageViewRoles(t *testing.T) {
	theme := testTheme()

	user := NewMessageView(model.NewUserMessage("hello there"), theme, nil)
	if !strings.Contains(user.View(), "hello there") {
		t.Error("user view missing content")
	}
	if !strings.Contains(user.View(), "YOU>") {
		t.Error("user view missing role label")
	}

	sys := NewMessageView(model.NewSystemMessage("SYSTEM ONLINE."), theme, nil)
	if !strings.Contains(sys.View(), "SYSTEM ONLINE.") {
		t.Error("system view missing content")
	}
}

func TestMessageViewStreamingCursor(t *testing.T) {
	msg := model.NewModelMessage("gemini-2.5-flash")
	msg.AppendToken("partial reply")

	view := NewMessageView(msg, testTheme(), nil).View()
	if !strings.Contains(view, "partial reply") {
		t.Error("streaming view missing content")
	}
	if !strings.Contains(view, styles.StreamCursorChar) {
		t.Error("streaming view missing cursor")
	}
}

func TestMessageViewCitations(t *testing.T) {
	msg := model.NewModelMessage("gemini-2.5-flash")
	msg.AppendToken("grounded answer")
	msg.FinalizeStream([]model.Citation{
		{Title: "World Atlas", URI: "https://example.com/atlas"},
	}, nil)

	view := NewMessageView(msg, testTheme(), nil).View()
	if !strings.Contains(view, "Sources:") {
		t.Error("missing sources header")
	}
	if !strings.Contains(view, "World Atlas") {
		t.Error("missing citation title")
	}
}

func TestMessageViewImageCaption(t *testing.T) {
	msg := model.NewModelMessage("imagen-4.0")
	msg.Image = &model.ImagePayload{
		MIMEType: "image/png",
		Data:     make([]byte, 2048),
		Aspect:   "16:9",
	}
	msg.IsStreaming = false

	view := NewMessageView(msg, testTheme(), nil).View()
	if !strings.Contains(view, "image/png") {
		t.Error("caption missing mime type")
	}
	if !strings.Contains(view, "16:9") {
		t.Error("caption missing aspect ratio")
	}
}

func TestMessageListRendersAll(t *testing.T) {
	log := model.NewLog()
	log.AppendUser("first question")
	log.FoldChunk(model.RoleModel, "an answer", "gemini-2.5-flash")
	log.FinalizeStream(nil, nil)

	list := NewMessageList(testTheme())
	list.SetWidth(80)
	view := list.View(log.Messages())

	for _, want := range []string{model.Greeting, "first question", "an answer"} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q", want)
		}
	}
}

// =============================================================================
// CODE HIGHLIGHTING
// =============================================================================

func TestHighlightCodeBlocksPassesPlainText(t *testing.T) {
	text := "no code here, just prose"
	if got := HighlightCodeBlocks(text); got != text {
		t.Errorf("plain text changed: %q", got)
	}
}

func TestHighlightCodeBlocksKeepsUnterminatedFence(t *testing.T) {
	text := "intro\n```go\nfunc main() {"
	got := HighlightCodeBlocks(text)
	if !strings.Contains(got, "```go") {
		t.Error("unterminated fence marker dropped")
	}
	if !strings.Contains(got, "func main() {") {
		t.Error("partial code dropped")
	}
}

func TestHighlightCodeBlocksCompleteFence(t *testing.T) {
	text := "before\n```go\nvar x = 1\n```\nafter"
	got := HighlightCodeBlocks(text)
	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Error("surrounding prose dropped")
	}
	// The fence markers are consumed; the highlighted source remains.
	if strings.Contains(got, "```go") {
		t.Error("complete fence marker should be consumed")
	}
}

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

func TestMarkdownRendererFallsBackGracefully(t *testing.T) {
	r := NewMarkdownRenderer(60)
	out := r.Render("plain **bold** text")
	if out == "" {
		t.Error("renderer returned empty output")
	}
	if !strings.Contains(out, "bold") {
		t.Error("renderer dropped content")
	}
}

// =============================================================================
// COMPLETION POPUP
// =============================================================================

func TestCompletionPopupCycling(t *testing.T) {
	popup := NewCompletionPopup(testTheme())
	popup.SetCompletions([]commands.Completion{
		{Value: "/theme", Description: "Change the color theme"},
		{Value: "/think", Description: "Toggle extended reasoning"},
		{Value: "/tokens", Description: "Show token usage"},
	})

	if sel := popup.Selected(); sel == nil || sel.Value != "/theme" {
		t.Fatal("initial selection is not the first entry")
	}

	popup.Next()
	if sel := popup.Selected(); sel.Value != "/think" {
		t.Errorf("after Next got %q", sel.Value)
	}

	popup.Prev()
	popup.Prev()
	if sel := popup.Selected(); sel.Value != "/tokens" {
		t.Errorf("Prev should wrap to last, got %q", sel.Value)
	}
}

func TestCompletionPopupView(t *testing.T) {
	popup := NewCompletionPopup(testTheme())
	if popup.View() != "" {
		t.Error("empty popup should render nothing")
	}

	popup.SetCompletions([]commands.Completion{
		{Value: "/help", Description: "List commands"},
	})
	view := popup.View()
	if !strings.Contains(view, "/help") {
		t.Error("popup missing command name")
	}

	popup.Clear()
	if popup.HasCompletions() {
		t.Error("Clear should drop completions")
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

func TestStatusBarView(t *testing.T) {
	bar := NewStatusBar(testTheme())
	bar.SetWidth(100)
	bar.ModelName = "gemini-2.5-flash"
	bar.Status = StatusStreaming
	bar.SetTokenUsage(500000, 1000000, false)

	view := bar.View()
	for _, want := range []string{"gemini-2.5-flash", "STREAMING", "50%", "/help"} {
		if !strings.Contains(view, want) {
			t.Errorf("status bar missing %q", want)
		}
	}
}

func TestStatusBarNearLimitWarning(t *testing.T) {
	bar := NewStatusBar(testTheme())
	bar.SetWidth(100)
	bar.SetTokenUsage(1046000, 1048576, true)

	if !strings.Contains(bar.View(), "!") {
		t.Error("near-limit warning marker missing")
	}
}

func TestStatusStrings(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusReady, "READY"},
		{StatusThinking, "THINKING"},
		{StatusStreaming, "STREAMING"},
		{StatusError, "ERROR"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// =============================================================================
// BOOT SCREEN
// =============================================================================

func TestBootScreenAdvances(t *testing.T) {
	boot := NewBootScreen(testTheme(), "1.0.0")
	if boot.Done() {
		t.Fatal("boot screen done before starting")
	}

	for i := 0; i < len(styles.BootLines); i++ {
		boot.Update(BootTickMsg{})
	}
	if !boot.Done() {
		t.Error("boot screen not done after all ticks")
	}

	view := boot.View()
	if !strings.Contains(view, "R E T R O T E R M") {
		t.Error("boot view missing logo")
	}
	if !strings.Contains(view, styles.BootLines[0]) {
		t.Error("boot view missing first line")
	}
}

func TestBootScreenSkip(t *testing.T) {
	boot := NewBootScreen(testTheme(), "")
	boot.Skip()
	if !boot.Done() {
		t.Error("Skip should finish the sequence")
	}
}

// =============================================================================
// KEY PICKER
// =============================================================================

func TestKeyPickerLifecycle(t *testing.T) {
	picker := NewKeyPicker(testTheme())
	if picker.Visible() {
		t.Fatal("picker visible before Open")
	}

	picker.Open()
	if !picker.Visible() {
		t.Error("picker not visible after Open")
	}
	if !strings.Contains(picker.View(), "ENTER API KEY") {
		t.Error("picker view missing title")
	}

	picker.SetError("key looks malformed")
	if !strings.Contains(picker.View(), "key looks malformed") {
		t.Error("picker view missing error message")
	}

	picker.Close()
	if picker.Visible() {
		t.Error("picker still visible after Close")
	}
	if picker.Value() != "" {
		t.Error("Close should wipe the entered value")
	}
}

// =============================================================================
// ERROR BOX
// =============================================================================

func TestErrorBoxRender(t *testing.T) {
	box := ErrorBox{
		Title:   "CONNECTION FAILED",
		Message: "could not reach the API endpoint",
		Tip:     "check your network and try again",
		Width:   50,
	}
	view := box.Render(testTheme())
	for _, want := range []string{"CONNECTION FAILED", "could not reach", "tip:"} {
		if !strings.Contains(view, want) {
			t.Errorf("error box missing %q", want)
		}
	}
}
