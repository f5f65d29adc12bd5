// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the slash command system: the registry of
// built-in commands, the parser, prefix completion, and the dispatcher
// that turns a command line into a Result of tagged effects.
//
// # Key Types
//
//   - Registry: name and alias lookup for built-in commands
//   - Parser: splits input into command name and arguments
//   - Dispatcher: executes commands against application services
//   - Result: the effects a command requests (message, settings patch,
//     log clear, async work)
//
// Handlers never mutate state directly. They read the settings snapshot
// they are given and describe changes through Result; the chat model
// applies and persists them. Validation failures produce an inline error
// message and change nothing.
package commands
