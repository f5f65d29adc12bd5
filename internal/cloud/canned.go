// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"strings"
)

// =============================================================================
// CANNED ERROR MESSAGES
// =============================================================================

// Canned user-readable explanations for provider failures. These are
// delivered through the normal chunk-append path as system messages, so
// they render exactly like a model reply.
const (
	CannedNoKey = "ERROR: No API key configured. Use /apikey to set one, or log in to an account."

	CannedInvalidKey = "ERROR: API key rejected. Check the key with /apikey or log in again."

	CannedQuota = "ERROR: Usage quota exceeded. Check your plan and billing, then try again."

	CannedRateLimited = "ERROR: Too many requests. Wait a moment and try again."

	CannedNetwork = "ERROR: Unable to reach the service. Check your connection and try again."

	CannedBlocked = "ERROR: The request was blocked by the content policy. Rephrase and try again."

	CannedNotFound = "ERROR: The requested model or endpoint was not found. Check /model."

	CannedGeneric = "ERROR: The request failed. Try again in a moment."
)

// CannedMessage maps an error to its canned system-message string.
// Sentinels are checked first, then substring matching on the error text
// catches failures that arrive as plain strings from lower layers.
func CannedMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNotConfigured):
		return CannedNoKey
	case errors.Is(err, ErrAuthFailed):
		return CannedInvalidKey
	case errors.Is(err, ErrInsufficientCredits):
		return CannedQuota
	case errors.Is(err, ErrRateLimited):
		return CannedRateLimited
	case errors.Is(err, ErrContentBlocked):
		return CannedBlocked
	case errors.Is(err, ErrModelNotFound):
		return CannedNotFound
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "api key") || strings.Contains(text, "api_key") ||
		strings.Contains(text, "unauthorized") || strings.Contains(text, "permission"):
		return CannedInvalidKey
	case strings.Contains(text, "quota") || strings.Contains(text, "billing") ||
		strings.Contains(text, "exhausted"):
		return CannedQuota
	case strings.Contains(text, "rate limit") || strings.Contains(text, "429"):
		return CannedRateLimited
	case strings.Contains(text, "safety") || strings.Contains(text, "blocked") ||
		strings.Contains(text, "prohibited"):
		return CannedBlocked
	case strings.Contains(text, "not found") || strings.Contains(text, "404"):
		return CannedNotFound
	case strings.Contains(text, "connection") || strings.Contains(text, "timeout") ||
		strings.Contains(text, "no such host") || strings.Contains(text, "network") ||
		strings.Contains(text, "refused") || strings.Contains(text, "eof"):
		return CannedNetwork
	}

	return CannedGeneric
}
