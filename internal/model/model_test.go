// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMessage_AppendToken(t *testing.T) {
	msg := NewModelMessage("gemini-2.5-flash")

	msg.AppendToken("Hel")
	msg.AppendToken("lo")

	if got := msg.GetDisplayContent(); got != "Hello" {
		t.Errorf("GetDisplayContent() = %q, want %q", got, "Hello")
	}

	// Finalized messages must ignore further tokens
	msg.FinalizeStream(nil, nil)
	msg.AppendToken("!")

	if msg.Content != "Hello" {
		t.Errorf("Content after finalize = %q, want %q", msg.Content, "Hello")
	}
}

func TestMessage_FinalizeStream(t *testing.T) {
	msg := NewModelMessage("gemini-2.5-pro")
	msg.AppendToken("answer")

	citations := []Citation{{Title: "Example", URI: "https://example.com"}}
	msg.FinalizeStream(citations, nil)

	if msg.IsStreaming {
		t.Error("IsStreaming should be false after finalize")
	}
	if msg.Content != "answer" {
		t.Errorf("Content = %q, want %q", msg.Content, "answer")
	}
	if len(msg.Citations) != 1 || msg.Citations[0].URI != "https://example.com" {
		t.Errorf("Citations = %v, want the example citation", msg.Citations)
	}

	// Double finalize must not clobber content
	msg.FinalizeStream(nil, nil)
	if msg.Content != "answer" {
		t.Errorf("Content after double finalize = %q, want %q", msg.Content, "answer")
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		content string
		maxLen  int
		want    string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
	}

	for _, tc := range tests {
		msg := NewUserMessage(tc.content)
		if got := msg.Preview(tc.maxLen); got != tc.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tc.content, tc.maxLen, got, tc.want)
		}
	}
}

func TestMessage_EstimateTokens(t *testing.T) {
	msg := NewUserMessage("12345678") // 8 chars -> 2 tokens
	if got := msg.EstimateTokens(); got != 2 {
		t.Errorf("EstimateTokens() = %d, want 2", got)
	}
}

// =============================================================================
// LOG TESTS
// =============================================================================

func TestNewLog_Greeting(t *testing.T) {
	l := NewLog()

	msgs := l.Messages()
	if len(msgs) != 1 {
		t.Fatalf("new log has %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != Greeting {
		t.Errorf("greeting = (%s, %q), want (system, greeting)", msgs[0].Role, msgs[0].Content)
	}
}

func TestLog_FoldChunk(t *testing.T) {
	l := NewLog()
	l.AppendUser("hi")

	// First chunk creates the trailing model message
	if !l.FoldChunk(RoleModel, "Hel", "gemini-2.5-flash") {
		t.Fatal("first chunk should be applied")
	}
	if !l.Streaming() {
		t.Error("Streaming() should be true after first chunk")
	}
	if !l.FoldChunk(RoleModel, "lo", "gemini-2.5-flash") {
		t.Fatal("second chunk should be applied")
	}

	last := l.Last()
	if last.Role != RoleModel {
		t.Errorf("last role = %s, want model", last.Role)
	}
	if got := last.GetDisplayContent(); got != "Hello" {
		t.Errorf("last content = %q, want %q", got, "Hello")
	}
}

func TestLog_FoldChunk_RoleMismatchSkipped(t *testing.T) {
	l := NewLog()
	l.FoldChunk(RoleModel, "partial", "gemini-2.5-flash")

	// A system chunk arriving mid-stream must not corrupt the model message
	if l.FoldChunk(RoleSystem, "error text", "") {
		t.Error("mismatched-role chunk should be skipped")
	}
	if got := l.Last().GetDisplayContent(); got != "partial" {
		t.Errorf("slot content = %q, want %q", got, "partial")
	}
}

func TestLog_FoldChunk_UserRejected(t *testing.T) {
	l := NewLog()
	if l.FoldChunk(RoleUser, "nope", "") {
		t.Error("user-role chunks must never open a streaming slot")
	}
	if l.Streaming() {
		t.Error("no slot should exist")
	}
}

func TestLog_FinalizeStream(t *testing.T) {
	l := NewLog()
	l.FoldChunk(RoleModel, "done", "gemini-2.5-flash")

	citations := []Citation{{Title: "Src", URI: "https://src.example"}}
	msg := l.FinalizeStream(citations, nil)

	if msg == nil {
		t.Fatal("FinalizeStream returned nil with an active slot")
	}
	if l.Streaming() {
		t.Error("slot should be cleared after finalize")
	}
	if msg.Content != "done" || len(msg.Citations) != 1 {
		t.Errorf("committed message = (%q, %d citations), want (done, 1)", msg.Content, len(msg.Citations))
	}

	// Finalize with no active stream is a no-op
	if l.FinalizeStream(nil, nil) != nil {
		t.Error("FinalizeStream without a slot should return nil")
	}
}

// Replaying the same ordered chunk sequence against a fresh log must yield
// an identical history.
func TestLog_FoldDeterministic(t *testing.T) {
	chunks := []struct {
		role Role
		text string
	}{
		{RoleModel, "The "},
		{RoleModel, "quick "},
		{RoleSystem, "stray"}, // skipped: role does not match the open slot
		{RoleModel, "fox"},
	}

	run := func() []string {
		l := NewLog()
		l.AppendUser("tell me")
		for _, c := range chunks {
			l.FoldChunk(c.role, c.text, "gemini-2.5-flash")
		}
		l.FinalizeStream(nil, nil)

		var out []string
		for _, m := range l.Messages() {
			out = append(out, string(m.Role)+":"+m.GetDisplayContent())
		}
		return out
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("replay lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("replay diverges at %d: %q vs %q", i, first[i], second[i])
		}
	}
	if first[len(first)-1] != "model:The quick fox" {
		t.Errorf("final message = %q, want %q", first[len(first)-1], "model:The quick fox")
	}
}

func TestLog_Clear(t *testing.T) {
	l := NewLog()
	l.AppendUser("one")
	l.FoldChunk(RoleModel, "two", "gemini-2.5-flash")

	l.Clear()

	msgs := l.Messages()
	if len(msgs) != 1 {
		t.Fatalf("cleared log has %d messages, want 1", len(msgs))
	}
	if msgs[0].Content != Greeting {
		t.Errorf("cleared log content = %q, want greeting", msgs[0].Content)
	}
	if l.Streaming() {
		t.Error("clear must drop the active slot")
	}
}

func TestLog_History_ExcludesSlot(t *testing.T) {
	l := NewLog()
	l.AppendUser("q")
	l.FoldChunk(RoleModel, "a", "gemini-2.5-flash")

	if n := len(l.History()); n != 2 {
		t.Errorf("History() length = %d, want 2 (greeting + user)", n)
	}
	if n := l.Len(); n != 3 {
		t.Errorf("Len() = %d, want 3 (history + slot)", n)
	}
}

func TestLog_ContextPercent(t *testing.T) {
	l := NewLog()
	l.SetContextLimit(100000)

	if l.IsContextNearLimit() {
		t.Error("fresh log should not be near the context limit")
	}

	l.SetContextLimit(10)
	l.AppendUser(strings.Repeat("x", 400))
	if !l.IsContextCritical() {
		t.Errorf("usage %.0f%% should be critical", l.ContextPercent())
	}
}

// =============================================================================
// MODEL REGISTRY TESTS
// =============================================================================

func TestResolveModel(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"flash", "gemini-2.5-flash", true},
		{"FLASH", "gemini-2.5-flash", true},
		{"pro", "gemini-2.5-pro", true},
		{"gemini-2.5-pro", "gemini-2.5-pro", true},
		{"some-new-model", "some-new-model", true}, // full id pass-through
		{"bogus", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		got, ok := ResolveModel(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ResolveModel(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestContextLimit(t *testing.T) {
	if got := ContextLimit("gemini-2.5-flash"); got != 1048576 {
		t.Errorf("ContextLimit(flash) = %d, want 1048576", got)
	}
	if got := ContextLimit("unknown-model"); got != DefaultContextLimit {
		t.Errorf("ContextLimit(unknown) = %d, want default", got)
	}
}

func TestAspectRatios(t *testing.T) {
	for _, r := range []string{"1:1", "16:9", "9:16", "4:3", "3:4"} {
		if !AspectRatios[r] {
			t.Errorf("aspect ratio %q should be accepted", r)
		}
	}
	if AspectRatios["2:1"] {
		t.Error("aspect ratio 2:1 should be rejected")
	}
}
