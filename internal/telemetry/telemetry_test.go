// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestLedger_Record_InputReplaces(t *testing.T) {
	l := NewLedger()

	l.Record("gemini-2.5-flash", IntPtr(1000), 0, 0)
	l.Record("gemini-2.5-flash", IntPtr(1500), 0, 0)

	got := l.Get("gemini-2.5-flash")
	if got.Input != 1500 {
		t.Errorf("Input = %d, want 1500 (replace, not add)", got.Input)
	}
}

func TestLedger_Record_OutputAccumulates(t *testing.T) {
	l := NewLedger()

	l.Record("gemini-2.5-flash", nil, 100, 0)
	l.Record("gemini-2.5-flash", nil, 250, 0)
	l.Record("gemini-2.5-flash", nil, 0, 50)
	l.Record("gemini-2.5-flash", nil, 0, 25)

	got := l.Get("gemini-2.5-flash")
	if got.Output != 350 {
		t.Errorf("Output = %d, want 350", got.Output)
	}
	if got.Image != 75 {
		t.Errorf("Image = %d, want 75", got.Image)
	}
}

func TestLedger_Record_NilInputPreserved(t *testing.T) {
	l := NewLedger()

	l.Record("pro", IntPtr(2000), 0, 0)
	l.Record("pro", nil, 300, 0)

	got := l.Get("pro")
	if got.Input != 2000 {
		t.Errorf("Input = %d, want 2000 (nil must not clobber)", got.Input)
	}
}

func TestLedger_Totals(t *testing.T) {
	l := NewLedger()

	l.Record("gemini-2.5-flash", IntPtr(100), 50, 0)
	l.Record("gemini-2.5-pro", IntPtr(200), 75, 10)

	total := l.Totals()
	if total.Input != 300 || total.Output != 125 || total.Image != 10 {
		t.Errorf("Totals = %+v, want {300 125 10}", total)
	}
}

func TestLedger_Reset(t *testing.T) {
	l := NewLedger()
	l.Record("gemini-2.5-flash", IntPtr(100), 50, 5)

	l.Reset()

	if !l.Totals().IsZero() {
		t.Errorf("Totals after Reset = %+v, want zero", l.Totals())
	}
	if len(l.All()) != 0 {
		t.Errorf("All after Reset has %d entries, want 0", len(l.All()))
	}
}

func TestLedger_Get_UnknownModel(t *testing.T) {
	l := NewLedger()
	if got := l.Get("never-seen"); !got.IsZero() {
		t.Errorf("Get unknown = %+v, want zero", got)
	}
}

func TestLedger_EmptyModelIgnored(t *testing.T) {
	l := NewLedger()
	l.Record("", IntPtr(100), 50, 0)
	if len(l.All()) != 0 {
		t.Errorf("empty model id should not create an entry")
	}
}

func TestLedger_ModelIDs_Sorted(t *testing.T) {
	l := NewLedger()
	l.Record("zeta", nil, 1, 0)
	l.Record("alpha", nil, 1, 0)
	l.Record("mid", nil, 1, 0)

	ids := l.ModelIDs()
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("ModelIDs len = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ModelIDs[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestLedger_ApproachingLimit(t *testing.T) {
	l := NewLedger()

	// gemini-2.5-flash limit is 1048576.
	l.Record("gemini-2.5-flash", IntPtr(1048576-WarningBuffer+1), 0, 0)
	if !l.ApproachingLimit("gemini-2.5-flash") {
		t.Error("expected ApproachingLimit true near the hard limit")
	}

	l.Record("gemini-2.5-flash", IntPtr(1000), 0, 0)
	if l.ApproachingLimit("gemini-2.5-flash") {
		t.Error("expected ApproachingLimit false well below the limit")
	}
}

func TestHistory_AppendAndTotals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	h, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	if err := h.Append(ctx, "gemini-2.5-flash", Usage{Input: 100, Output: 50, Image: 0}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := h.Append(ctx, "gemini-2.5-flash", Usage{Input: 200, Output: 75, Image: 10}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := h.Append(ctx, "imagen-4.0", Usage{Image: 1290}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	totals, err := h.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}

	flash := totals["gemini-2.5-flash"]
	if flash.Input != 300 || flash.Output != 125 || flash.Image != 10 {
		t.Errorf("flash totals = %+v, want {300 125 10}", flash)
	}
	if totals["imagen-4.0"].Image != 1290 {
		t.Errorf("imagen totals = %+v, want Image 1290", totals["imagen-4.0"])
	}
}

func TestHistory_Prune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	h, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	if err := h.Append(ctx, "gemini-2.5-flash", Usage{Output: 10}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	n, err := h.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune deleted %d rows, want 1", n)
	}

	totals, err := h.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if len(totals) != 0 {
		t.Errorf("expected empty totals after prune, got %v", totals)
	}
}

func TestHistory_NilSafe(t *testing.T) {
	var h *History
	ctx := context.Background()

	if err := h.Append(ctx, "m", Usage{}); err != nil {
		t.Errorf("nil History Append returned %v", err)
	}
	if _, err := h.Totals(ctx); err != nil {
		t.Errorf("nil History Totals returned %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("nil History Close returned %v", err)
	}
}
