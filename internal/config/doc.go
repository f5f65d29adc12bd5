// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages persistent settings for the retroterm application.
//
// Settings live in a TOML file at ~/.retroterm/config.toml (0600) and,
// for signed-in users, in a per-user record on the account backend. The
// Store type coordinates the two: remote wins on load, saves write through
// to both, and the API key never touches the durable local cache once a
// remote session exists.
//
// # Key Types
//
//   - Settings: The seven user-facing fields (font size, theme, key, model,
//     thinking toggle and budget, audio toggle)
//   - Patch: Partial settings update produced by the command dispatcher
//   - Store: Write-through coordinator for local cache + remote record
//   - Watcher: fsnotify-based hot reload of the config file
//
// # Environment
//
// RETROTERM_API_KEY, RETROTERM_MODEL, RETROTERM_THEME, RETROTERM_DEBUG,
// RETROTERM_API_BASE_URL, RETROTERM_AUTH_BASE_URL override file values.
// RETROTERM_STUDIO_KEY puts the client in studio mode, where the host
// supplies the API key out-of-band and manual key entry is bypassed.
package config
