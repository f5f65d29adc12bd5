// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the bubbletea chat view, the heart of the TUI.
//
// # Key Types
//
//   - Model: the bubbletea model holding the message log, settings, and
//     every component
//   - State: idle / awaiting first chunk / streaming
//   - StreamingBuffer: batches stream tokens for flicker-free rendering
//
// # Streaming
//
// A send moves the model from StateIdle to StateAwaiting and opens the
// cloud stream. Chunks arrive over a channel pumped one message at a time
// through Update; the first chunk creates the trailing model message and
// moves to StateStreaming. Tokens are folded into the log through a
// StreamingBuffer flushed at ~30fps. Completion attaches citations and
// usage and returns to StateIdle. While not in StateIdle a second send is
// rejected; there is no queue and no cancellation.
//
// Errors reach the user through the same path: the mapped canned string
// is appended as a system message and the partial reply, if any, is kept.
package chat
