// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"
)

func TestStreamingBufferBatchFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	for i := 0; i < defaultBatchSize; i++ {
		sb.Write("tok ")
	}

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("expected flush after a full batch")
	}
	if got := strings.Count(content, "tok"); got != defaultBatchSize {
		t.Errorf("flushed %d tokens, want %d", got, defaultBatchSize)
	}
	if sb.Pending() != 0 {
		t.Errorf("pending = %d after flush, want 0", sb.Pending())
	}
}

func TestStreamingBufferIntervalFlush(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.flushInterval = time.Nanosecond

	sb.Write("a")
	time.Sleep(time.Millisecond)

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("expected flush after the frame interval elapsed")
	}
	if content != "a" {
		t.Errorf("content = %q, want %q", content, "a")
	}
}

func TestStreamingBufferHoldsSmallBatch(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.flushInterval = time.Hour

	sb.Write("a")
	sb.Write("b")

	if content, ok := sb.Flush(); ok {
		t.Fatalf("Flush returned %q before batch or interval was due", content)
	}
	if sb.Pending() != 2 {
		t.Errorf("pending = %d, want 2", sb.Pending())
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.flushInterval = time.Hour

	sb.Write("tail")
	content, ok := sb.ForceFlush()
	if !ok || content != "tail" {
		t.Errorf("ForceFlush = %q, %v; want %q, true", content, ok, "tail")
	}

	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush on an empty buffer reported content")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("discard me")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("pending = %d after Reset, want 0", sb.Pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("buffer still held content after Reset")
	}
}
