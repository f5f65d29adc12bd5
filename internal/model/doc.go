// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the message log and messages.
//
// This package defines the core domain types used throughout the application
// for representing the chat transcript, streamed turns, and model information.
//
// # Key Types
//
//   - Log: Ordered message history plus one active streaming slot
//   - Message: Single turn with role, content, citations, and optional image
//   - ModelInfo: Information about a text model (id, tier, context window)
//   - Role: Message role enumeration (user, model, system)
//
// # Streaming
//
// History is append-only. While a response streams in, chunks fold into the
// log's active slot; the slot is committed into the history when the stream
// finalizes:
//
//	log := model.NewLog()
//	log.AppendUser("Hello!")
//	log.FoldChunk(model.RoleModel, "Hi ", "gemini-2.5-flash")
//	log.FoldChunk(model.RoleModel, "there.", "gemini-2.5-flash")
//	log.FinalizeStream(nil, nil)
package model
