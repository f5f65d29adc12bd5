// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI line mode: one-shot questions and
// the account login, register, and logout flows.
//
// # Commands
//
//   - retroterm ask [question]   send one question, print the reply
//   - retroterm login            authenticate against the account backend
//   - retroterm register         create an account
//   - retroterm logout           end the current session
//
// Ask renders markdown when stdout is a terminal and falls back to plain
// text when piped. Login and register read the password without echo.
package cli
