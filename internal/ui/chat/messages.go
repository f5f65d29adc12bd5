// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the bubbletea chat view.
//
// This file defines the bubbletea message types used by the chat view:
// streaming lifecycle, render ticks, and configuration reloads. The image
// result message lives in internal/commands next to the handler that
// produces it.
package chat

import (
	"time"

	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/config"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartedMsg carries the open chunk channel after a successful
// stream setup.
type StreamStartedMsg struct {
	Chunks <-chan cloud.StreamChunk
}

// StreamFailedMsg reports that the stream could not be opened at all.
type StreamFailedMsg struct {
	Err error
}

// StreamChunkMsg delivers one chunk pulled from the channel.
type StreamChunkMsg struct {
	Chunk cloud.StreamChunk
}

// StreamClosedMsg signals that the chunk channel was drained and closed.
type StreamClosedMsg struct{}

// StreamTickMsg drives the render flush while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// CONFIGURATION MESSAGES
// =============================================================================

// ConfigReloadedMsg arrives when the fsnotify watcher sees an external
// edit to the config file.
type ConfigReloadedMsg struct {
	Settings config.Settings
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// FlashClearMsg clears the transient status flash.
type FlashClearMsg struct{}
