// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the retroterm TUI.
//
// # Key Types
//
//   - MessageView: renders a single chat message (user, model, system)
//   - MessageList: renders the full message log
//   - Spinner: loading indicator shown while awaiting the first chunk
//   - CompletionPopup: slash-command suggestion popup
//   - StatusBar: bottom bar with model, token usage, and shortcuts
//   - BootScreen: the retro boot sequence shown at startup
//   - KeyPicker: masked API key entry overlay
//
// Components take a *styles.Theme and render lipgloss-styled strings. They
// hold no application state beyond what their setters receive; the chat
// model owns the data and pushes it down before each View.
package components
