// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks per-model token usage for the current run and
// persists lifetime totals to a local SQLite database.
//
// # Key Types
//
//   - Usage: input/output/image token counters for one model
//   - Ledger: thread-safe per-run ledger with replace-on-input semantics
//   - History: SQLite-backed lifetime usage store
//
// # Usage
//
//	ledger := telemetry.NewLedger()
//	ledger.Record("gemini-2.5-flash", telemetry.IntPtr(1200), 450, 0)
//	total := ledger.Totals()
//
// Input counters replace because the server reports the full context size
// on every response; output and image counters accumulate.
package telemetry

// IntPtr returns a pointer to v, for Record's replace-semantics input field.
func IntPtr(v int) *int { return &v }
