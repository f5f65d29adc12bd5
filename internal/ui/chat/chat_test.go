// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/commands"
	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/telemetry"
	"github.com/jeranaias/retroterm/internal/ui/components"
)

const testAPIKey = "test-api-key-abcdefghij-0123456789"

func newTestModel(t *testing.T) Model {
	t.Helper()

	cfg := config.Default()
	cfg.Settings.APIKey = testAPIKey

	store := config.NewStore(cfg, filepath.Join(t.TempDir(), "config.toml"), nil)
	client := cloud.NewClient(testAPIKey)
	client.SetModel(cfg.Settings.Model)

	m := New(Options{
		Config:  cfg,
		Store:   store,
		Client:  client,
		Ledger:  telemetry.NewLedger(),
		Version: "test",
	})
	m.boot.Skip()
	return m.handleResize(tea.WindowSizeMsg{Width: 100, Height: 30})
}

func asModel(t *testing.T, tm tea.Model) Model {
	t.Helper()
	m, ok := tm.(Model)
	if !ok {
		t.Fatalf("update returned %T, want chat.Model", tm)
	}
	return m
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitRejectedWhileBusy(t *testing.T) {
	m := newTestModel(t)
	m.state = StateStreaming
	before := m.log.Len()

	m.input.SetValue("hello")
	tm, _ := m.handleSubmit()
	m = asModel(t, tm)

	if m.flash == "" {
		t.Error("expected a busy notice in the flash line")
	}
	if m.log.Len() != before {
		t.Errorf("log grew from %d to %d while busy", before, m.log.Len())
	}
	if m.input.Value() != "hello" {
		t.Error("input was consumed by a rejected submission")
	}
}

func TestSubmitEmptyInputIsNoop(t *testing.T) {
	m := newTestModel(t)
	before := m.log.Len()

	m.input.SetValue("   ")
	tm, cmd := m.handleSubmit()
	m = asModel(t, tm)

	if cmd != nil {
		t.Error("empty submit produced a command")
	}
	if m.log.Len() != before {
		t.Error("empty submit changed the log")
	}
}

func TestSubmitChatAppendsUserAndStartsStream(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue("what is a PDP-11?")
	tm, cmd := m.handleSubmit()
	m = asModel(t, tm)

	if m.state != StateAwaiting {
		t.Errorf("state = %v, want StateAwaiting", m.state)
	}
	if cmd == nil {
		t.Error("expected spinner and stream commands")
	}
	last := m.log.Last()
	if last == nil || last.Role != model.RoleUser || last.Content != "what is a PDP-11?" {
		t.Errorf("last message = %+v, want the user turn", last)
	}
}

func TestSubmitWithoutAPIKey(t *testing.T) {
	m := newTestModel(t)
	m.client.SetAPIKey("")

	m.input.SetValue("hello")
	tm, _ := m.handleSubmit()
	m = asModel(t, tm)

	if m.state != StateIdle {
		t.Errorf("state = %v, want StateIdle", m.state)
	}
	last := m.log.Last()
	if last == nil || last.Role != model.RoleSystem {
		t.Fatalf("last message = %+v, want a system error", last)
	}
	if !strings.Contains(last.Content, "No API key") {
		t.Errorf("error text = %q, want the missing-key notice", last.Content)
	}
}

func TestClearCommandResetsLogAndLedger(t *testing.T) {
	m := newTestModel(t)
	m.log.AppendUser("old question")
	m.ledger.Record("gemini-2.5-flash", telemetry.IntPtr(100), 50, 0)

	m.input.SetValue("/clear")
	tm, _ := m.handleSubmit()
	m = asModel(t, tm)

	// Greeting plus the confirmation.
	if m.log.Len() != 2 {
		t.Errorf("log length = %d after /clear, want 2", m.log.Len())
	}
	if first := m.log.History()[0]; first.Content != model.Greeting {
		t.Errorf("first message = %q, want the greeting", first.Content)
	}
	if totals := m.ledger.Totals(); totals.Input != 0 || totals.Output != 0 {
		t.Errorf("ledger totals = %+v after /clear, want zero", totals)
	}
}

func TestThemeCommandAppliesAndPersists(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue("/theme amber")
	tm, _ := m.handleSubmit()
	m = asModel(t, tm)

	if m.settings.Theme != "amber" {
		t.Errorf("settings theme = %q, want amber", m.settings.Theme)
	}
	if m.cfg.Settings.Theme != "amber" {
		t.Errorf("config theme = %q, want amber", m.cfg.Settings.Theme)
	}
}

func TestModelCommandUpdatesClientAndContext(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue("/model gemini-2.5-pro")
	tm, _ := m.handleSubmit()
	m = asModel(t, tm)

	if got := m.client.Model(); got != "gemini-2.5-pro" {
		t.Errorf("client model = %q, want gemini-2.5-pro", got)
	}
	if m.settings.Model != "gemini-2.5-pro" {
		t.Errorf("settings model = %q, want gemini-2.5-pro", m.settings.Model)
	}
}

// =============================================================================
// STREAMING
// =============================================================================

func startTestStream(t *testing.T, m Model) Model {
	t.Helper()
	m.input.SetValue("hello")
	tm, _ := m.handleSubmit()
	return asModel(t, tm)
}

func TestChunksFoldIntoSingleReply(t *testing.T) {
	m := startTestStream(t, newTestModel(t))

	tm, _ := m.handleChunk(cloud.StreamChunk{Text: "The PDP-11 "})
	m = asModel(t, tm)
	tm, _ = m.handleChunk(cloud.StreamChunk{Text: "was a minicomputer."})
	m = asModel(t, tm)

	if m.state != StateStreaming {
		t.Errorf("state = %v after first chunk, want StateStreaming", m.state)
	}

	tm, _ = m.handleChunk(cloud.StreamChunk{
		Usage: &cloud.Usage{PromptTokens: 12, CandidatesTokens: 34},
	})
	m = asModel(t, tm)

	tm, _ = m.handleStreamComplete()
	m = asModel(t, tm)

	if m.state != StateIdle {
		t.Errorf("state = %v after close, want StateIdle", m.state)
	}
	last := m.log.Last()
	if last == nil || last.Role != model.RoleModel {
		t.Fatalf("last message = %+v, want the model reply", last)
	}
	if last.Content != "The PDP-11 was a minicomputer." {
		t.Errorf("reply = %q, chunks were not folded in order", last.Content)
	}
	if last.IsStreaming {
		t.Error("reply still marked streaming after close")
	}

	totals := m.ledger.Totals()
	if totals.Input != 12 || totals.Output != 34 {
		t.Errorf("ledger totals = %+v, want input 12 output 34", totals)
	}
}

func TestMismatchedRoleChunkSkipped(t *testing.T) {
	m := startTestStream(t, newTestModel(t))

	tm, _ := m.handleChunk(cloud.StreamChunk{Role: "user", Text: "echoed prompt"})
	m = asModel(t, tm)

	if m.buffer.Pending() != 0 {
		t.Error("mismatched chunk was buffered")
	}
	if m.state != StateAwaiting {
		t.Errorf("state = %v, want StateAwaiting (no model token yet)", m.state)
	}
}

func TestStreamErrorKeepsPartialReply(t *testing.T) {
	m := startTestStream(t, newTestModel(t))

	tm, _ := m.handleChunk(cloud.StreamChunk{Text: "partial answer"})
	m = asModel(t, tm)

	tm, _ = m.handleStreamError(cloud.ErrRateLimited)
	m = asModel(t, tm)

	if m.state != StateIdle {
		t.Errorf("state = %v after error, want StateIdle", m.state)
	}

	msgs := m.log.History()
	if len(msgs) < 2 {
		t.Fatalf("log has %d messages, want partial reply plus error", len(msgs))
	}
	reply := msgs[len(msgs)-2]
	errMsg := msgs[len(msgs)-1]
	if reply.Role != model.RoleModel || reply.Content != "partial answer" {
		t.Errorf("partial reply = %+v, want the folded text preserved", reply)
	}
	if errMsg.Role != model.RoleSystem || errMsg.Content != cloud.CannedMessage(cloud.ErrRateLimited) {
		t.Errorf("error message = %+v, want the canned rate-limit text", errMsg)
	}
}

func TestStreamErrorBeforeFirstChunk(t *testing.T) {
	m := startTestStream(t, newTestModel(t))

	tm, _ := m.handleStreamError(cloud.ErrAuthFailed)
	m = asModel(t, tm)

	last := m.log.Last()
	if last == nil || last.Role != model.RoleSystem {
		t.Fatalf("last message = %+v, want a system error", last)
	}
	if m.log.Streaming() {
		t.Error("stream slot survived an abort")
	}
}

// =============================================================================
// IMAGE RESULTS
// =============================================================================

func TestImageResultAppendsMessageAndTokens(t *testing.T) {
	m := newTestModel(t)

	tm, _ := m.handleImageResult(commands.ImageResultMsg{
		Prompt: "a neon skyline",
		Model:  "imagen-4.0",
		Image: &cloud.GeneratedImage{
			MIMEType: "image/png",
			Data:     make([]byte, 2048),
			Aspect:   "16:9",
			Usage:    &cloud.Usage{TotalTokens: 1290},
		},
	})
	m = asModel(t, tm)

	last := m.log.Last()
	if last == nil || last.Role != model.RoleModel || last.Image == nil {
		t.Fatalf("last message = %+v, want a model message with an image", last)
	}
	if last.Image.Aspect != "16:9" {
		t.Errorf("aspect = %q, want 16:9", last.Image.Aspect)
	}
	if got := m.ledger.Get("imagen-4.0").Image; got != 1290 {
		t.Errorf("image tokens = %d, want 1290", got)
	}
}

func TestImageResultError(t *testing.T) {
	m := newTestModel(t)

	tm, _ := m.handleImageResult(commands.ImageResultMsg{
		Prompt: "a neon skyline",
		Model:  "imagen-4.0",
		Err:    cloud.ErrContentBlocked,
	})
	m = asModel(t, tm)

	last := m.log.Last()
	if last == nil || last.Role != model.RoleSystem {
		t.Fatalf("last message = %+v, want a system error", last)
	}
}

// =============================================================================
// KEY PICKER
// =============================================================================

func typeString(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		tm, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = asModel(t, tm)
	}
	return m
}

func TestKeyPickerSavesValidKey(t *testing.T) {
	m := newTestModel(t)
	m.keyPicker.Open()

	m = typeString(t, m, "replacement-key-abcdefghij-9876543210")
	tm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = asModel(t, tm)

	if m.keyPicker.Visible() {
		t.Error("picker still open after a valid key")
	}
	if m.settings.APIKey != "replacement-key-abcdefghij-9876543210" {
		t.Errorf("settings key = %q, want the entered key", m.settings.APIKey)
	}
}

func TestKeyPickerRejectsShortKey(t *testing.T) {
	m := newTestModel(t)
	m.keyPicker.Open()

	m = typeString(t, m, "short")
	tm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = asModel(t, tm)

	if !m.keyPicker.Visible() {
		t.Error("picker closed on an invalid key")
	}
	if m.settings.APIKey == "short" {
		t.Error("invalid key was saved")
	}
}

func TestKeyPickerEscCancels(t *testing.T) {
	m := newTestModel(t)
	m.keyPicker.Open()
	m = typeString(t, m, "half-typed")

	tm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = asModel(t, tm)

	if m.keyPicker.Visible() {
		t.Error("picker still open after esc")
	}
	if m.settings.APIKey != testAPIKey {
		t.Errorf("settings key = %q, esc should not change it", m.settings.APIKey)
	}
}

// =============================================================================
// COMPLETIONS
// =============================================================================

func TestSlashInputShowsCompletions(t *testing.T) {
	m := newTestModel(t)

	m = typeString(t, m, "/th")
	if !m.popup.HasCompletions() {
		t.Fatal("no completions for /th")
	}

	tm, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = asModel(t, tm)

	if got := m.input.Value(); !strings.HasPrefix(got, "/theme") {
		t.Errorf("input = %q after tab, want /theme prefix", got)
	}
}

func TestPlainInputHasNoCompletions(t *testing.T) {
	m := newTestModel(t)

	m = typeString(t, m, "hello")
	if m.popup.HasCompletions() {
		t.Error("completions shown for non-command input")
	}
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func TestConfigReloadPreservesInMemoryKey(t *testing.T) {
	m := newTestModel(t)

	m = m.handleConfigReload(config.Settings{
		FontSize: 16,
		Theme:    "cobalt",
		Model:    "gemini-2.5-pro",
	})

	if m.settings.APIKey != testAPIKey {
		t.Errorf("key = %q after reload, want the in-memory key kept", m.settings.APIKey)
	}
	if m.settings.Theme != "cobalt" {
		t.Errorf("theme = %q, want cobalt", m.settings.Theme)
	}
	if m.client.Model() != "gemini-2.5-pro" {
		t.Errorf("client model = %q, want gemini-2.5-pro", m.client.Model())
	}
}

// =============================================================================
// BOOT
// =============================================================================

func TestKeypressSkipsBoot(t *testing.T) {
	m := newTestModel(t)
	m.boot = components.NewBootScreen(m.theme, "test")

	tm, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = asModel(t, tm)

	if !m.boot.Done() {
		t.Error("boot still running after a keypress")
	}
}
