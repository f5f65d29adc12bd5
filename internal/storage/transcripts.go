// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides transcript persistence for retroterm.
package storage

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/util"
)

// =============================================================================
// STORED TRANSCRIPT TYPE
// =============================================================================

// StoredTranscript is a persisted chat transcript.
type StoredTranscript struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []StoredMessage `json:"messages"`

	TokensUsed int `json:"tokens_used,omitempty"`
}

// StoredMessage is one persisted message.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "model", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ModelName string    `json:"model_name,omitempty"`

	Citations []StoredCitation `json:"citations,omitempty"`
	Image     *StoredImage     `json:"image,omitempty"`

	// Statistics, model messages only.
	TokenCount   int     `json:"token_count,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
	TokensPerSec float64 `json:"tokens_per_sec,omitempty"`
	TTFTMs       int64   `json:"ttft_ms,omitempty"`
}

// StoredCitation is one persisted grounding source.
type StoredCitation struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

// StoredImage carries a generated image inline as base64.
type StoredImage struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
	Aspect   string `json:"aspect,omitempty"`
}

// TranscriptMeta contains metadata for listing transcripts.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrTranscriptNotFound is returned when a transcript doesn't exist.
// Use errors.Is(err, ErrTranscriptNotFound) to check for this error.
var ErrTranscriptNotFound = &TranscriptError{Message: "transcript not found"}

// TranscriptError represents a transcript-related error.
type TranscriptError struct {
	Message string
}

// Error implements the error interface.
func (e *TranscriptError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore handles transcript persistence under a base directory,
// one JSON file per transcript.
type TranscriptStore struct {
	// BaseDir is the directory for stored transcripts,
	// default ~/.retroterm/transcripts/
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited).
	MaxTranscripts int
}

// NewTranscriptStore creates a store under the user's home directory.
func NewTranscriptStore() (*TranscriptStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewTranscriptStoreWithDir(filepath.Join(homeDir, ".retroterm", "transcripts"))
}

// NewTranscriptStoreWithDir creates a store with a custom directory.
func NewTranscriptStoreWithDir(baseDir string) (*TranscriptStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &TranscriptStore{
		BaseDir:        baseDir,
		MaxTranscripts: 100,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a transcript and returns its ID.
func (s *TranscriptStore) Save(tr *StoredTranscript) (string, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.Summary == "" {
		tr.Summary = s.generateSummary(tr)
	}

	tr.UpdatedAt = time.Now()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = tr.UpdatedAt
	}

	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(s.filePath(tr.ID), data, 0644); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}

	return tr.ID, nil
}

// generateSummary creates a summary from the first user message.
func (s *TranscriptStore) generateSummary(tr *StoredTranscript) string {
	for _, msg := range tr.Messages {
		if msg.Role == string(model.RoleUser) && msg.Content != "" {
			content := strings.ReplaceAll(msg.Content, "\n", " ")
			content = strings.ReplaceAll(content, "\r", "")
			return util.TruncateRunes(content, 50)
		}
	}
	return "New transcript"
}

// enforceLimit removes the oldest transcripts when over the cap.
func (s *TranscriptStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxTranscripts
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a transcript by ID.
func (s *TranscriptStore) Load(id string) (*StoredTranscript, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var tr StoredTranscript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// List returns all saved transcripts, most recent first.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	var metas []TranscriptMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		tr, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // skip corrupted files
		}

		preview := ""
		for _, msg := range tr.Messages {
			if msg.Role == string(model.RoleUser) {
				preview = util.TruncateRunes(msg.Content, 80)
				break
			}
		}

		metas = append(metas, TranscriptMeta{
			ID:           tr.ID,
			Summary:      tr.Summary,
			Model:        tr.Model,
			CreatedAt:    tr.CreatedAt,
			UpdatedAt:    tr.UpdatedAt,
			MessageCount: len(tr.Messages),
			Preview:      preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a transcript by ID.
func (s *TranscriptStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

// filePath returns the file path for a transcript ID.
func (s *TranscriptStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// =============================================================================
// LOG CONVERSION
// =============================================================================

// FromLog captures the current message log as a storable transcript.
// The streaming slot, if active, is excluded.
func FromLog(log *model.Log, modelName string) *StoredTranscript {
	history := log.History()
	tr := &StoredTranscript{
		Model:      modelName,
		TokensUsed: log.EstimateTokens(),
		Messages:   make([]StoredMessage, 0, len(history)),
	}

	for _, msg := range history {
		stored := StoredMessage{
			ID:         msg.ID,
			Role:       string(msg.Role),
			Content:    msg.Content,
			Timestamp:  msg.Timestamp,
			ModelName:  msg.ModelName,
			TokenCount: msg.TokenCount,
		}
		if msg.TotalDuration > 0 {
			stored.DurationMs = msg.TotalDuration.Milliseconds()
			stored.TTFTMs = msg.TTFT.Milliseconds()
			stored.TokensPerSec = msg.TokensPerSec
		}
		for _, c := range msg.Citations {
			stored.Citations = append(stored.Citations, StoredCitation{Title: c.Title, URI: c.URI})
		}
		if msg.Image != nil {
			stored.Image = &StoredImage{
				MIMEType: msg.Image.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(msg.Image.Data),
				Aspect:   msg.Image.Aspect,
			}
		}
		tr.Messages = append(tr.Messages, stored)
	}

	return tr
}

// ToMessages rebuilds log messages from a stored transcript.
func (tr *StoredTranscript) ToMessages() []*model.Message {
	messages := make([]*model.Message, 0, len(tr.Messages))
	for _, stored := range tr.Messages {
		msg := model.NewMessage(model.Role(stored.Role), stored.Content)
		msg.ID = stored.ID
		msg.Timestamp = stored.Timestamp
		msg.ModelName = stored.ModelName
		msg.TokenCount = stored.TokenCount
		msg.TokensPerSec = stored.TokensPerSec
		msg.TotalDuration = time.Duration(stored.DurationMs) * time.Millisecond
		msg.TTFT = time.Duration(stored.TTFTMs) * time.Millisecond

		for _, c := range stored.Citations {
			msg.Citations = append(msg.Citations, model.Citation{Title: c.Title, URI: c.URI})
		}
		if stored.Image != nil {
			if data, err := base64.StdEncoding.DecodeString(stored.Image.Data); err == nil {
				msg.Image = &model.ImagePayload{
					MIMEType: stored.Image.MIMEType,
					Data:     data,
					Aspect:   stored.Image.Aspect,
				}
			}
		}
		messages = append(messages, msg)
	}
	return messages
}
