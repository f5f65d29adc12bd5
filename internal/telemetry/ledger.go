// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks token usage per model.
package telemetry

import (
	"sort"
	"sync"

	"github.com/jeranaias/retroterm/internal/model"
)

// WarningBuffer is the soft-warning margin below a model's context limit.
// The warning is advisory only and never blocks sending.
const WarningBuffer = 4096

// =============================================================================
// USAGE TYPE
// =============================================================================

// Usage holds the token counters for one model.
//
// Input carries replace semantics: it is the last reported total context
// size, not a running sum. Output and Image are additive within a run.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Image  int `json:"image"`
}

// Total returns the sum of all counters.
func (u Usage) Total() int {
	return u.Input + u.Output + u.Image
}

// IsZero reports whether nothing has been recorded.
func (u Usage) IsZero() bool {
	return u.Input == 0 && u.Output == 0 && u.Image == 0
}

// =============================================================================
// LEDGER TYPE
// =============================================================================

// Ledger is the per-run token usage ledger, keyed by canonical model id.
// Counters reset on /clear and at startup; persistence across runs is the
// History's job, not the Ledger's.
type Ledger struct {
	mu    sync.RWMutex
	usage map[string]*Usage
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		usage: make(map[string]*Usage),
	}
}

// Record updates the counters for a model. input replaces when non-nil;
// output and imageDelta add.
func (l *Ledger) Record(modelID string, input *int, output, imageDelta int) {
	if modelID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.usage[modelID]
	if !ok {
		u = &Usage{}
		l.usage[modelID] = u
	}

	if input != nil {
		u.Input = *input
	}
	u.Output += output
	u.Image += imageDelta
}

// Get returns the usage for one model.
func (l *Ledger) Get(modelID string) Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if u, ok := l.usage[modelID]; ok {
		return *u
	}
	return Usage{}
}

// All returns a copy of every model's usage.
func (l *Ledger) All() map[string]Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]Usage, len(l.usage))
	for id, u := range l.usage {
		out[id] = *u
	}
	return out
}

// ModelIDs returns the recorded model ids, sorted.
func (l *Ledger) ModelIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.usage))
	for id := range l.usage {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Totals returns the sum across all models.
func (l *Ledger) Totals() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total Usage
	for _, u := range l.usage {
		total.Input += u.Input
		total.Output += u.Output
		total.Image += u.Image
	}
	return total
}

// Reset zeroes every counter.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage = make(map[string]*Usage)
}

// =============================================================================
// CONTEXT LIMIT DISPLAY
// =============================================================================

// PercentOfLimit returns the last reported context size as a percentage of
// the model's configured context limit. Display only.
func (l *Ledger) PercentOfLimit(modelID string) float64 {
	limit := model.ContextLimit(modelID)
	if limit <= 0 {
		return 0
	}
	return float64(l.Get(modelID).Input) / float64(limit) * 100
}

// ApproachingLimit reports whether the last known context size is within
// WarningBuffer tokens of the model's hard limit.
func (l *Ledger) ApproachingLimit(modelID string) bool {
	limit := model.ContextLimit(modelID)
	if limit <= 0 {
		return false
	}
	return limit-l.Get(modelID).Input <= WarningBuffer
}
