// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the bubbletea chat view.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/retroterm/internal/auth"
	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/commands"
	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/storage"
	"github.com/jeranaias/retroterm/internal/telemetry"
	"github.com/jeranaias/retroterm/internal/ui/components"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State tracks the streaming lifecycle.
type State int

const (
	StateIdle      State = iota // ready for input
	StateAwaiting               // request sent, no chunk yet
	StateStreaming              // folding chunks into the trailing message
)

// Busy reports whether a send is in flight.
func (s State) Busy() bool {
	return s != StateIdle
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options carries the shared services the chat view depends on. Gateway,
// History, and Transcripts may be nil; the corresponding features degrade
// quietly.
type Options struct {
	Config      *config.Config
	Store       *config.Store
	Client      *cloud.Client
	Gateway     *auth.Gateway
	Ledger      *telemetry.Ledger
	History     *telemetry.History
	Transcripts *storage.TranscriptStore
	Version     string
}

// Model is the bubbletea model for the chat view.
type Model struct {
	state State

	theme  *styles.Theme
	width  int
	height int

	log      *model.Log
	settings config.Settings
	cfg      *config.Config
	store    *config.Store

	client      *cloud.Client
	gateway     *auth.Gateway
	ledger      *telemetry.Ledger
	history     *telemetry.History
	transcripts *storage.TranscriptStore

	dispatcher *commands.Dispatcher
	completer  *commands.Completer

	// Components
	viewport  viewport.Model
	input     textinput.Model
	spinner   components.Spinner
	statusBar *components.StatusBar
	msgList   *components.MessageList
	popup     *components.CompletionPopup
	keyPicker *components.KeyPicker
	boot      *components.BootScreen

	// Streaming
	buffer          *StreamingBuffer
	chunks          <-chan cloud.StreamChunk
	streamStats     *model.Statistics
	streamCitations []model.Citation
	streamUsage     *cloud.Usage

	// Transient status line text, cleared after a short delay.
	flash string

	version string
}

// New creates the chat model. Settings are read once from the store; the
// caller has already loaded and merged local and remote state.
func New(opts Options) Model {
	settings := opts.Config.Settings
	theme := styles.NewTheme(settings.Theme)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or /help"
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.TextStyle = theme.InputText
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	vp := viewport.New(80, 20)

	dispatcher := commands.NewDispatcher(opts.Config, opts.Client, opts.Gateway, opts.Ledger)
	dispatcher.Version = opts.Version

	log := model.NewLog()
	log.Clear()
	log.SetContextLimit(model.ContextLimit(opts.Client.Model()))

	m := Model{
		state:       StateIdle,
		theme:       theme,
		log:         log,
		settings:    settings,
		cfg:         opts.Config,
		store:       opts.Store,
		client:      opts.Client,
		gateway:     opts.Gateway,
		ledger:      opts.Ledger,
		history:     opts.History,
		transcripts: opts.Transcripts,
		dispatcher:  dispatcher,
		completer:   commands.NewCompleter(dispatcher.Registry()),
		viewport:    vp,
		input:       ti,
		spinner:     components.NewSpinner(theme),
		statusBar:   components.NewStatusBar(theme),
		msgList:     components.NewMessageList(theme),
		popup:       components.NewCompletionPopup(theme),
		keyPicker:   components.NewKeyPicker(theme),
		boot:        components.NewBootScreen(theme, opts.Version),
		buffer:      NewStreamingBuffer(),
		version:     opts.Version,
	}

	m.statusBar.ModelName = opts.Client.Model()
	m.statusBar.Authenticated = opts.Gateway != nil && opts.Gateway.Authenticated()
	m.syncViewport()
	return m
}

// Init starts the boot animation and the input cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.boot.Start(), textinput.Blink)
}

// Settings returns the current settings snapshot.
func (m Model) Settings() config.Settings {
	return m.settings
}

// Log exposes the message log, used by main for the shutdown transcript.
func (m Model) Log() *model.Log {
	return m.log
}

// =============================================================================
// INTERNAL STATE HELPERS
// =============================================================================

// applyTheme rebuilds every themed component from a palette name.
func (m *Model) applyTheme(name string) {
	m.theme = styles.NewTheme(name)
	m.theme.SetSize(m.width, m.height)
	m.msgList.SetTheme(m.theme)
	m.popup.SetTheme(m.theme)
	m.statusBar.SetTheme(m.theme)
	m.spinner = components.NewSpinner(m.theme)
	m.keyPicker = components.NewKeyPicker(m.theme)
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.TextStyle = m.theme.InputText
	m.input.PlaceholderStyle = m.theme.InputPlaceholder
}

// syncViewport re-renders the log into the viewport and follows the tail.
func (m *Model) syncViewport() {
	m.viewport.SetContent(m.msgList.View(m.log.Messages()))
	m.viewport.GotoBottom()
}

// syncStatus refreshes the status bar from current state.
func (m *Model) syncStatus() {
	m.statusBar.ModelName = m.client.Model()
	m.statusBar.Authenticated = m.gateway != nil && m.gateway.Authenticated()
	m.statusBar.SetTokenUsage(m.log.EstimateTokens(), model.ContextLimit(m.client.Model()), m.log.IsContextNearLimit())
	switch m.state {
	case StateAwaiting:
		m.statusBar.Status = components.StatusThinking
	case StateStreaming:
		m.statusBar.Status = components.StatusStreaming
	default:
		m.statusBar.Status = components.StatusReady
	}
}

// setFlash shows a transient status line message.
func (m *Model) setFlash(text string) tea.Cmd {
	m.flash = text
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return FlashClearMsg{}
	})
}

// saveTranscript persists the current log. Best effort; failures are
// logged inside the store.
func (m *Model) saveTranscript() {
	if m.transcripts == nil || m.log.Len() <= 1 {
		return
	}
	t := storage.FromLog(m.log, m.client.Model())
	_, _ = m.transcripts.Save(t)
}
