// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth is the client for the optional account service: register,
// login (with an optional TOTP second factor), logout, and the per-user
// settings record that backs remote settings sync.
//
// # Key Types
//
//   - Session: an authenticated account session with a hard expiry
//   - Gateway: the account service client, also the remote settings store
//   - SessionCache: AES-256-GCM encrypted on-disk session persistence
//
// Sessions are never mutated; expiry is a pure time comparison. A corrupt
// or expired cache silently degrades to logged-out, never to an error the
// user has to deal with.
package auth
