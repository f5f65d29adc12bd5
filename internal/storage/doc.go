// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat transcripts as one JSON file each under
// ~/.retroterm/transcripts/, written atomically.
//
// # Key Types
//
//   - TranscriptStore: save/load/list/delete over the base directory
//   - StoredTranscript: the persisted form, convertible to and from the
//     in-memory message log
//
// Corrupted files are skipped during listing rather than failing the
// whole listing. Generated images are stored inline as base64.
package storage
