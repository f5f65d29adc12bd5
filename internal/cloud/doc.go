// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud is the client for the hosted generative API: streaming
// text generation over SSE, image generation, and error mapping.
//
// # Key Types
//
//   - Client: the API client, one per process
//   - Turn: one conversation turn in wire format
//   - StreamChunk: one streamed delta (text, citations, usage, or error)
//   - GeneratedImage: a decoded image generation result
//
// # Usage
//
//	client := cloud.NewClient(apiKey)
//	client.SetModel("gemini-2.5-flash")
//
//	chunks, err := client.GenerateStream(ctx, turns, cloud.GenerateOptions{})
//	if err != nil { ... }
//	for chunk := range chunks {
//	    if chunk.Err != nil { ... }
//	    render(chunk.Text)
//	}
//
// Failures are mapped twice: first to sentinel errors (ErrAuthFailed,
// ErrRateLimited, ...) for callers that branch, then via CannedMessage to
// the fixed user-readable strings the chat log displays as system
// messages. Retries use exponential backoff from 500ms, capped at 10s;
// a client-side rate limiter sits ahead of every call.
package cloud
