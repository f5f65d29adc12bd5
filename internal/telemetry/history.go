// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// HISTORY TYPE
// =============================================================================

// History persists token usage across runs in a small SQLite database.
// Every method is best-effort from the caller's point of view: a broken
// history file must never block chatting, so callers log errors and move on.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the usage history database at path.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// PERFORMANCE: single connection avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS usage_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at   TEXT NOT NULL,
		model         TEXT NOT NULL,
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		image_tokens  INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_history(model);
	CREATE INDEX IF NOT EXISTS idx_usage_recorded ON usage_history(recorded_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Append records one usage snapshot for a model.
func (h *History) Append(ctx context.Context, modelID string, u Usage) error {
	if h == nil || h.db == nil {
		return nil
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO usage_history (recorded_at, model, input_tokens, output_tokens, image_tokens)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), modelID, u.Input, u.Output, u.Image,
	)
	if err != nil {
		return fmt.Errorf("appending usage record: %w", err)
	}
	return nil
}

// Totals returns lifetime usage summed per model.
func (h *History) Totals(ctx context.Context) (map[string]Usage, error) {
	if h == nil || h.db == nil {
		return map[string]Usage{}, nil
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT model, SUM(input_tokens), SUM(output_tokens), SUM(image_tokens)
		 FROM usage_history GROUP BY model`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying usage totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]Usage)
	for rows.Next() {
		var id string
		var u Usage
		if err := rows.Scan(&id, &u.Input, &u.Output, &u.Image); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		totals[id] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage rows: %w", err)
	}
	return totals, nil
}

// Prune deletes records older than the cutoff.
func (h *History) Prune(ctx context.Context, before time.Time) (int64, error) {
	if h == nil || h.db == nil {
		return 0, nil
	}
	res, err := h.db.ExecContext(ctx,
		`DELETE FROM usage_history WHERE recorded_at < ?`,
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning usage history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}
