// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the bubbletea chat view.
package chat

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/commands"
	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/telemetry"
	"github.com/jeranaias/retroterm/internal/ui/components"
	"github.com/jeranaias/retroterm/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update is the bubbletea message handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case components.BootTickMsg:
		cmd := m.boot.Update(msg)
		return m, cmd

	case StreamStartedMsg:
		m.chunks = msg.Chunks
		return m, tea.Batch(waitForChunk(m.chunks), streamTickCmd())

	case StreamFailedMsg:
		return m.handleStreamError(msg.Err)

	case StreamChunkMsg:
		return m.handleChunk(msg.Chunk)

	case StreamTickMsg:
		if m.state == StateStreaming {
			m.flushStream()
			m.syncViewport()
		}
		if m.state.Busy() {
			return m, streamTickCmd()
		}
		return m, nil

	case StreamClosedMsg:
		return m.handleStreamComplete()

	case commands.ImageResultMsg:
		return m.handleImageResult(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg.Settings), nil

	case FlashClearMsg:
		m.flash = ""
		return m, nil
	}

	// Everything else feeds the animated components.
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header, input box, and status bar claim five rows.
	vpHeight := msg.Height - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight

	m.msgList.SetWidth(msg.Width - 2)
	m.statusBar.SetWidth(msg.Width)
	m.popup.SetWidth(msg.Width / 2)
	m.keyPicker.SetSize(msg.Width, msg.Height)
	m.boot.SetSize(msg.Width, msg.Height)
	m.input.Width = msg.Width - 4

	m.syncViewport()
	return m
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The key picker is modal while open.
	if m.keyPicker.Visible() {
		return m.handleKeyPickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.saveTranscript()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.popup.HasCompletions() {
			m.popup.Clear()
			return m, nil
		}
		return m, nil
	}

	// Any key fast-forwards the boot sequence.
	if !m.boot.Done() {
		m.boot.Skip()
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.handleSubmit()

	case tea.KeyTab:
		if m.popup.HasCompletions() {
			m.acceptCompletion()
			return m, nil
		}

	case tea.KeyDown:
		if m.popup.HasCompletions() {
			m.popup.Next()
			return m, nil
		}

	case tea.KeyUp:
		if m.popup.HasCompletions() {
			m.popup.Prev()
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshCompletions()
	return m, cmd
}

func (m Model) handleKeyPickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.keyPicker.Close()
		return m, nil

	case tea.KeyEnter:
		key := m.keyPicker.Value()
		if !cloud.ValidateAPIKey(key) {
			m.keyPicker.SetError("That does not look like a valid API key.")
			return m, nil
		}
		m.keyPicker.Close()
		patch := &config.Patch{APIKey: config.StrPtr(key)}
		return m.applyResult(commands.Result{
			Handled: true,
			Success: true,
			Message: "API key saved.",
			Role:    model.RoleSystem,
			Patch:   patch,
		})

	case tea.KeyCtrlC:
		m.keyPicker.Close()
		return m, nil
	}

	cmd := m.keyPicker.Update(msg)
	return m, cmd
}

// refreshCompletions rebuilds the suggestion popup from the current input.
func (m *Model) refreshCompletions() {
	value := m.input.Value()
	if !strings.HasPrefix(value, "/") {
		m.popup.Clear()
		return
	}
	m.popup.SetCompletions(m.completer.Complete(value))
}

// acceptCompletion replaces the trailing token of the input with the
// selected suggestion.
func (m *Model) acceptCompletion() {
	sel := m.popup.Selected()
	if sel == nil {
		return
	}

	value := m.input.Value()
	if idx := strings.LastIndex(value, " "); idx >= 0 {
		value = value[:idx+1] + sel.Value
	} else {
		value = sel.Value + " "
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.refreshCompletions()
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	// Busy flag: one send at a time, no queueing.
	if m.state.Busy() {
		return m, m.setFlash("Busy. Wait for the current reply to finish.")
	}

	m.input.SetValue("")
	m.popup.Clear()

	res := m.dispatcher.Execute(input, m.settings)
	if res.Handled {
		return m.applyResult(res)
	}

	return m.sendChat(input)
}

// sendChat starts a streaming turn for plain text input.
func (m Model) sendChat(input string) (tea.Model, tea.Cmd) {
	if !m.client.IsConfigured() {
		m.log.AppendUser(input)
		m.log.AppendSystem(cloud.CannedMessage(cloud.ErrNotConfigured))
		m.syncViewport()
		return m, nil
	}

	m.log.AppendUser(input)
	m.state = StateAwaiting
	m.streamStats = model.NewStatistics()
	m.streamCitations = nil
	m.streamUsage = nil
	m.buffer.Reset()
	m.syncViewport()
	m.syncStatus()

	turns := buildTurns(m.log.History())
	opts := cloud.GenerateOptions{
		ThinkingEnabled: m.settings.ThinkingEnabled,
		ThinkingBudget:  m.settings.ThinkingBudget,
	}

	return m, tea.Batch(
		m.spinner.Start(),
		openStreamCmd(m.client, turns, opts),
	)
}

// buildTurns converts the committed log into the wire conversation.
// System messages are local chrome and never leave the client.
func buildTurns(history []*model.Message) []cloud.Turn {
	turns := make([]cloud.Turn, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case model.RoleUser:
			turns = append(turns, cloud.NewUserTurn(msg.Content))
		case model.RoleModel:
			if msg.Content != "" {
				turns = append(turns, cloud.NewModelTurn(msg.Content))
			}
		}
	}
	return turns
}

// =============================================================================
// STREAMING
// =============================================================================

func (m Model) handleChunk(chunk cloud.StreamChunk) (tea.Model, tea.Cmd) {
	if chunk.Err != nil {
		return m.handleStreamError(chunk.Err)
	}

	if chunk.Usage != nil {
		m.streamUsage = chunk.Usage
	}
	for _, c := range chunk.Citations {
		m.streamCitations = append(m.streamCitations, model.Citation{Title: c.Title, URI: c.URI})
	}

	if chunk.Text != "" {
		// Role guard: a chunk that does not belong to the model turn is
		// skipped rather than folded into the wrong message.
		role := model.Role(chunk.Role)
		if chunk.Role == "" {
			role = model.RoleModel
		}
		if role != model.RoleModel {
			util.Logger().Debug("skipping mismatched stream chunk", "role", chunk.Role)
			return m, waitForChunk(m.chunks)
		}

		if m.state == StateAwaiting {
			m.state = StateStreaming
			m.spinner.Stop()
			m.streamStats.RecordFirstToken()
			m.syncStatus()
		}
		m.buffer.Write(chunk.Text)
		if content, ok := m.buffer.Flush(); ok {
			m.log.FoldChunk(model.RoleModel, content, m.client.Model())
			m.syncViewport()
		}
	}

	return m, waitForChunk(m.chunks)
}

// flushStream folds any due buffered tokens into the log.
func (m *Model) flushStream() {
	if content, ok := m.buffer.Flush(); ok {
		m.log.FoldChunk(model.RoleModel, content, m.client.Model())
	}
}

func (m Model) handleStreamComplete() (tea.Model, tea.Cmd) {
	if content, ok := m.buffer.ForceFlush(); ok {
		m.log.FoldChunk(model.RoleModel, content, m.client.Model())
	}

	completionTokens := 0
	if m.streamUsage != nil {
		completionTokens = m.streamUsage.CandidatesTokens
	}
	m.streamStats.Finalize(completionTokens)
	m.log.FinalizeStream(m.streamCitations, m.streamStats)

	m.recordUsage()

	m.state = StateIdle
	m.chunks = nil
	m.spinner.Stop()
	m.syncViewport()
	m.syncStatus()
	return m, nil
}

// handleStreamError keeps whatever partial reply arrived, then delivers
// the canned error string as a system message.
func (m Model) handleStreamError(err error) (tea.Model, tea.Cmd) {
	if content, ok := m.buffer.ForceFlush(); ok {
		m.log.FoldChunk(model.RoleModel, content, m.client.Model())
	}

	if last := m.log.Last(); last != nil && last.IsStreaming && last.Content != "" {
		m.log.FinalizeStream(m.streamCitations, nil)
	} else {
		m.log.AbortStream()
	}

	m.log.AppendSystem(cloud.CannedMessage(err))
	util.Logger().Warn("stream failed", "error", err)

	m.state = StateIdle
	m.chunks = nil
	m.spinner.Stop()
	m.syncViewport()
	m.syncStatus()
	return m, nil
}

// recordUsage updates the per-run ledger and the persistent history from
// the stream's usage metadata.
func (m *Model) recordUsage() {
	if m.streamUsage == nil {
		return
	}

	modelID := m.client.Model()
	m.ledger.Record(modelID, telemetry.IntPtr(m.streamUsage.PromptTokens), m.streamUsage.CandidatesTokens, 0)

	if m.history != nil {
		usage := telemetry.Usage{
			Input:  m.streamUsage.PromptTokens,
			Output: m.streamUsage.CandidatesTokens,
		}
		if err := m.history.Append(context.Background(), modelID, usage); err != nil {
			util.Logger().Warn("usage history append failed", "error", err)
		}
	}

	if m.ledger.ApproachingLimit(modelID) {
		m.log.AppendSystem("SYSTEM: Context window is nearly full. /clear to start fresh.")
	}
}

// =============================================================================
// IMAGE RESULTS
// =============================================================================

func (m Model) handleImageResult(msg commands.ImageResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.AppendSystem(cloud.CannedMessage(msg.Err))
		m.syncViewport()
		return m, nil
	}

	img := msg.Image
	reply := model.NewMessage(model.RoleModel, "Generated image for: "+msg.Prompt+" ("+img.Aspect+")")
	reply.ModelName = msg.Model
	reply.Image = &model.ImagePayload{
		MIMEType: img.MIMEType,
		Data:     img.Data,
		Aspect:   img.Aspect,
	}
	m.log.Append(reply)

	imageTokens := 0
	if img.Usage != nil {
		imageTokens = img.Usage.TotalTokens
	}
	m.ledger.Record(msg.Model, nil, 0, imageTokens)
	if m.history != nil {
		if err := m.history.Append(context.Background(), msg.Model, telemetry.Usage{Image: imageTokens}); err != nil {
			util.Logger().Warn("usage history append failed", "error", err)
		}
	}

	m.syncViewport()
	return m, nil
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// applyResult applies the tagged effects of a dispatcher result.
func (m Model) applyResult(res commands.Result) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if res.ClearLog {
		m.log.Clear()
	}
	if res.ResetLedger {
		m.ledger.Reset()
	}

	if res.Message != "" {
		switch res.Role {
		case model.RoleUser:
			m.log.AppendUser(res.Message)
		default:
			m.log.AppendSystem(res.Message)
		}
	}

	if res.Patch != nil && !res.Patch.IsZero() {
		m.settings = res.Patch.Apply(m.settings)
		m.store.Save(context.Background(), m.settings)

		if res.Patch.Theme != nil {
			m.applyTheme(*res.Patch.Theme)
		}
		if res.Patch.Model != nil {
			m.client.SetModel(*res.Patch.Model)
			m.log.SetContextLimit(model.ContextLimit(*res.Patch.Model))
		}
		if res.Patch.APIKey != nil {
			m.client.SetAPIKey(*res.Patch.APIKey)
		}
	}

	if res.OpenKeyPicker {
		cmds = append(cmds, m.keyPicker.Open())
	}
	if res.Async != nil {
		cmds = append(cmds, res.Async)
	}

	m.syncViewport()
	m.syncStatus()
	return m, tea.Batch(cmds...)
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// handleConfigReload adopts settings changed outside the process. The
// in-memory API key survives a reload that dropped it from disk.
func (m Model) handleConfigReload(s config.Settings) Model {
	if s.APIKey == "" {
		s.APIKey = m.settings.APIKey
	}

	if s.Theme != m.settings.Theme {
		m.applyTheme(s.Theme)
	}
	if s.Model != m.settings.Model && s.Model != "" {
		m.client.SetModel(s.Model)
		m.log.SetContextLimit(model.ContextLimit(s.Model))
	}
	if s.APIKey != m.settings.APIKey {
		m.client.SetAPIKey(s.APIKey)
	}

	m.settings = s
	m.syncViewport()
	m.syncStatus()
	return m
}
