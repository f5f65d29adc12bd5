// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the message log and messages.
package model

import (
	"time"
)

// Greeting is the initial system message every fresh log starts with.
// Clearing the log restores exactly this greeting and nothing else.
const Greeting = "SYSTEM ONLINE. Type a message, or /help for available commands."

// MaxMessages is the maximum number of committed messages to keep.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// LOG TYPE
// =============================================================================

// Log is the ordered message history plus one active streaming slot.
//
// Committed history is append-only. The active slot is the only mutable
// element: chunks fold into it while a stream runs, and it is committed into
// the history when the stream finalizes. This keeps in-place mutation out of
// the history entirely.
type Log struct {
	messages []*Message
	active   *Message

	// Context tracking
	tokensUsed   int
	contextLimit int
}

// NewLog creates a log seeded with the initial system greeting.
func NewLog() *Log {
	l := &Log{
		messages:     make([]*Message, 0, 16),
		contextLimit: DefaultContextLimit,
	}
	l.Append(NewSystemMessage(Greeting))
	return l
}

// =============================================================================
// APPEND-ONLY HISTORY
// =============================================================================

// Append commits a message to the history.
func (l *Log) Append(msg *Message) {
	l.messages = append(l.messages, msg)
	l.updateTokenEstimate()
	l.prune()
}

// AppendUser creates and commits a user message.
func (l *Log) AppendUser(content string) *Message {
	msg := NewUserMessage(content)
	l.Append(msg)
	return msg
}

// AppendSystem creates and commits a system message.
func (l *Log) AppendSystem(content string) *Message {
	msg := NewSystemMessage(content)
	l.Append(msg)
	return msg
}

// =============================================================================
// STREAMING SLOT
// =============================================================================

// Streaming reports whether a stream is currently folding into the log.
func (l *Log) Streaming() bool {
	return l.active != nil
}

// FoldChunk folds one stream chunk into the active slot.
//
// The first chunk of a turn creates the slot. A chunk whose role does not
// match the slot's role is skipped rather than corrupting an unrelated
// message. Returns true if the chunk was applied.
func (l *Log) FoldChunk(role Role, text string, modelName string) bool {
	if l.active == nil {
		switch role {
		case RoleModel:
			l.active = NewModelMessage(modelName)
		case RoleSystem:
			msg := NewSystemMessage("")
			msg.IsStreaming = true
			l.active = msg
		default:
			return false
		}
	}

	if l.active.Role != role {
		return false
	}

	l.active.AppendToken(text)
	return true
}

// FinalizeStream commits the active slot into the history, attaching any
// citations gathered during the stream. Returns the committed message, or
// nil when no stream was active.
func (l *Log) FinalizeStream(citations []Citation, stats *Statistics) *Message {
	if l.active == nil {
		return nil
	}

	msg := l.active
	l.active = nil
	msg.FinalizeStream(citations, stats)
	l.Append(msg)
	return msg
}

// AbortStream drops the active slot without committing it.
func (l *Log) AbortStream() {
	l.active = nil
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Messages returns the history including the active slot, if any, as the
// trailing element. The returned slice is a snapshot.
func (l *Log) Messages() []*Message {
	out := make([]*Message, len(l.messages), len(l.messages)+1)
	copy(out, l.messages)
	if l.active != nil {
		out = append(out, l.active)
	}
	return out
}

// Last returns the trailing message (the active slot while streaming),
// or nil for an empty log.
func (l *Log) Last() *Message {
	if l.active != nil {
		return l.active
	}
	if len(l.messages) == 0 {
		return nil
	}
	return l.messages[len(l.messages)-1]
}

// Len returns the number of messages including the active slot.
func (l *Log) Len() int {
	n := len(l.messages)
	if l.active != nil {
		n++
	}
	return n
}

// History returns only the committed messages, excluding the active slot.
// Used to build the prior-turn payload for the text API.
func (l *Log) History() []*Message {
	out := make([]*Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear resets the log to exactly the initial greeting and drops any
// active stream.
func (l *Log) Clear() {
	l.messages = l.messages[:0]
	l.active = nil
	l.tokensUsed = 0
	l.Append(NewSystemMessage(Greeting))
}

// =============================================================================
// CONTEXT TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the log.
func (l *Log) EstimateTokens() int {
	total := 0
	for _, msg := range l.messages {
		total += msg.EstimateTokens()
		// Overhead for message structure (~4 tokens per message)
		total += 4
	}
	if l.active != nil {
		total += l.active.EstimateTokens() + 4
	}
	return total
}

// SetContextLimit updates the context window used for percentage displays.
func (l *Log) SetContextLimit(limit int) {
	if limit > 0 {
		l.contextLimit = limit
		l.updateTokenEstimate()
	}
}

// ContextPercent returns the percentage of the context window in use.
func (l *Log) ContextPercent() float64 {
	if l.contextLimit <= 0 {
		return 0
	}
	return float64(l.tokensUsed) / float64(l.contextLimit) * 100
}

// IsContextNearLimit returns true if context usage is above 75%.
func (l *Log) IsContextNearLimit() bool {
	return l.ContextPercent() >= 75
}

// IsContextCritical returns true if context usage is above 90%.
func (l *Log) IsContextCritical() bool {
	return l.ContextPercent() >= 90
}

func (l *Log) updateTokenEstimate() {
	l.tokensUsed = l.EstimateTokens()
}

// prune removes old messages when the history exceeds MaxMessages,
// preserving the greeting and any system messages.
func (l *Log) prune() {
	if len(l.messages) <= MaxMessages {
		return
	}

	var system []*Message
	var rest []*Message
	for _, msg := range l.messages {
		if msg.Role == RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	if len(rest) > MaxMessages {
		rest = rest[len(rest)-MaxMessages:]
	}

	l.messages = make([]*Message, 0, len(system)+len(rest))
	l.messages = append(l.messages, system...)
	l.messages = append(l.messages, rest...)
}

// =============================================================================
// TRANSCRIPT METADATA
// =============================================================================

// Meta holds lightweight metadata for transcript listing.
type Meta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}
