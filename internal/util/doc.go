// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the retroterm application.
//
// This package contains common helpers used throughout the application for
// string truncation, crash-safe file writes, and the file-backed logger.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - InitLogger / Logger: slog logger writing to the config directory
package util
