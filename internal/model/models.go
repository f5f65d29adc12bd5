// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the message log and messages.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultModel is the canonical id used when no model has been chosen.
const DefaultModel = "gemini-2.5-flash"

// DefaultContextLimit is the context window assumed for unknown models.
const DefaultContextLimit = 131072

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo contains detailed information about a text model.
// This is used for model selection and display in the UI.
type ModelInfo struct {
	// ID is the canonical model identifier used in API calls and as the
	// token-ledger key
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Tier categorizes the model's capability level
	Tier string `json:"tier"`

	// ContextLimit is the maximum context window size in tokens
	ContextLimit int `json:"context_limit"`

	// Description is a brief explanation of the model's strengths
	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the registry of known text models keyed by short alias.
var Models = map[string]ModelInfo{
	"flash": {
		ID:           "gemini-2.5-flash",
		Name:         "Gemini 2.5 Flash",
		Tier:         "Fast",
		ContextLimit: 1048576,
		Description:  "Fast and efficient for everyday chat",
	},
	"flash-lite": {
		ID:           "gemini-2.5-flash-lite",
		Name:         "Gemini 2.5 Flash Lite",
		Tier:         "Fast",
		ContextLimit: 1048576,
		Description:  "Lowest latency and cost",
	},
	"pro": {
		ID:           "gemini-2.5-pro",
		Name:         "Gemini 2.5 Pro",
		Tier:         "Powerful",
		ContextLimit: 1048576,
		Description:  "Most capable for complex reasoning",
	},
	"flash-2": {
		ID:           "gemini-2.0-flash",
		Name:         "Gemini 2.0 Flash",
		Tier:         "Fast",
		ContextLimit: 1048576,
		Description:  "Previous generation fast model",
	},
}

// ImageModels is the set of accepted image-generation model ids.
var ImageModels = map[string]bool{
	"imagen-4.0":             true,
	"imagen-4.0-ultra":       true,
	"imagen-4.0-fast":        true,
	"gemini-2.5-flash-image": true,
}

// DefaultImageModel is used when the image command gives no --model flag.
const DefaultImageModel = "imagen-4.0"

// AspectRatios is the set of accepted image aspect ratios.
var AspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

// DefaultAspectRatio is used when the image command gives no --aspect flag.
const DefaultAspectRatio = "1:1"

// =============================================================================
// MODEL LOOKUP
// =============================================================================

// ResolveModel maps a user-supplied name to a canonical model id.
//
// Short aliases resolve through the registry. Full ids (anything containing
// a dash) pass through unchanged so unlisted models remain usable. A bare
// word that matches no alias is rejected.
func ResolveModel(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	if info, ok := Models[strings.ToLower(name)]; ok {
		return info.ID, true
	}

	for _, info := range Models {
		if info.ID == name {
			return info.ID, true
		}
	}

	// Full ids pass through; bare unknown aliases do not.
	if strings.Contains(name, "-") {
		return name, true
	}

	return "", false
}

// ContextLimit returns the context window for a canonical model id,
// or DefaultContextLimit for models not in the registry.
func ContextLimit(id string) int {
	for _, info := range Models {
		if info.ID == id {
			return info.ContextLimit
		}
	}
	return DefaultContextLimit
}

// LookupModel returns registry info for an alias or canonical id.
func LookupModel(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[strings.ToLower(nameOrID)]; ok {
		return info, true
	}
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ModelAliases returns a sorted slice of all registry aliases.
func ModelAliases() []string {
	names := make([]string, 0, len(Models))
	for name := range Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImageModelIDs returns a sorted slice of accepted image model ids.
func ImageModelIDs() []string {
	ids := make([]string, 0, len(ImageModels))
	for id := range ImageModels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveImageModel maps a user-supplied image model name to its id.
// Exact ids match directly; "imagen" style shorthand without a version
// resolves to the default.
func ResolveImageModel(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	if ImageModels[name] {
		return name, true
	}
	if name == "imagen" {
		return DefaultImageModel, true
	}
	return "", false
}

// AspectRatioList returns the accepted aspect ratios, sorted.
func AspectRatioList() []string {
	ratios := make([]string, 0, len(AspectRatios))
	for r := range AspectRatios {
		ratios = append(ratios, r)
	}
	sort.Strings(ratios)
	return ratios
}

// =============================================================================
// MODEL INFO METHODS
// =============================================================================

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.ContextLimit >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.ContextLimit)/1000000)
	}
	if m.ContextLimit >= 1000 {
		return fmt.Sprintf("%dK tokens", m.ContextLimit/1000)
	}
	return fmt.Sprintf("%d tokens", m.ContextLimit)
}

// TierIcon returns an icon character for the model tier.
func (m ModelInfo) TierIcon() string {
	switch m.Tier {
	case "Fast":
		return "z"
	case "Powerful":
		return "&"
	default:
		return "~"
	}
}
