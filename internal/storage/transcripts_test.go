// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/retroterm/internal/model"
)

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	store, err := NewTranscriptStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewTranscriptStoreWithDir: %v", err)
	}
	return store
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	tr := &StoredTranscript{
		Model: "gemini-2.5-flash",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "hello", Timestamp: time.Now()},
			{ID: "m2", Role: "model", Content: "hi there", Timestamp: time.Now(), ModelName: "gemini-2.5-flash"},
		},
	}

	id, err := store.Save(tr)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty ID")
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("Messages = %d, want 2", len(loaded.Messages))
	}
	if loaded.Summary != "hello" {
		t.Errorf("Summary = %q, want auto-generated from first user message", loaded.Summary)
	}
}

func TestLoad_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("nope")
	if !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("err = %v, want ErrTranscriptNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Save(&StoredTranscript{Messages: []StoredMessage{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(id); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Load after Delete = %v, want ErrTranscriptNotFound", err)
	}
	if err := store.Delete(id); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("double Delete = %v, want ErrTranscriptNotFound", err)
	}
}

func TestList_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	first, _ := store.Save(&StoredTranscript{Messages: []StoredMessage{{Role: "user", Content: "first"}}})
	time.Sleep(10 * time.Millisecond)
	second, _ := store.Save(&StoredTranscript{Messages: []StoredMessage{{Role: "user", Content: "second"}}})

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List len = %d, want 2", len(metas))
	}
	if metas[0].ID != second || metas[1].ID != first {
		t.Errorf("List order wrong: %v then %v", metas[0].ID, metas[1].ID)
	}
	if metas[0].Preview != "second" {
		t.Errorf("Preview = %q", metas[0].Preview)
	}
}

func TestEnforceLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxTranscripts = 2

	for i := 0; i < 3; i++ {
		if _, err := store.Save(&StoredTranscript{Messages: []StoredMessage{{Role: "user", Content: "msg"}}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Errorf("List len = %d, want cap of 2", len(metas))
	}
}

func TestFromLog_RoundTrip(t *testing.T) {
	log := model.NewLog()
	log.AppendUser("draw me a map")
	log.FoldChunk(model.RoleModel, "here is ", "gemini-2.5-flash")
	log.FoldChunk(model.RoleModel, "your map", "gemini-2.5-flash")
	log.FinalizeStream([]model.Citation{{Title: "Atlas", URI: "https://example.com"}}, nil)

	last := log.Last()
	last.Image = &model.ImagePayload{MIMEType: "image/png", Data: []byte{1, 2, 3}, Aspect: "16:9"}

	tr := FromLog(log, "gemini-2.5-flash")
	// Greeting + user + model reply.
	if len(tr.Messages) != 3 {
		t.Fatalf("stored messages = %d, want 3", len(tr.Messages))
	}

	store := newTestStore(t)
	id, err := store.Save(tr)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	messages := loaded.ToMessages()
	reply := messages[len(messages)-1]
	if reply.Content != "here is your map" {
		t.Errorf("reply content = %q", reply.Content)
	}
	if len(reply.Citations) != 1 || reply.Citations[0].URI != "https://example.com" {
		t.Errorf("citations = %+v", reply.Citations)
	}
	if reply.Image == nil || len(reply.Image.Data) != 3 || reply.Image.Aspect != "16:9" {
		t.Errorf("image = %+v", reply.Image)
	}
}
