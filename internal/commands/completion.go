// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"

	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// COMPLETION
// =============================================================================

// Completion is one suggestion for the popup.
type Completion struct {
	// Value is inserted into the input on accept.
	Value string

	// Description shown alongside.
	Description string
}

// Completer produces suggestions for partially typed input.
type Completer struct {
	registry *Registry
}

// NewCompleter creates a completer over the registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns suggestions for the current input, or nil when the
// input is not in command position.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	// Still typing the command name: prefix-match against the registry.
	if partial := GetPartialCommand(input); partial != "" {
		var completions []Completion
		for _, cmd := range c.registry.MatchPrefix(strings.ToLower(partial)) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Description: cmd.Description,
			})
		}
		return completions
	}

	// Command name complete: offer argument values for commands with
	// enumerable arguments.
	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return nil
	}
	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil {
		return nil
	}

	var partial string
	if len(parts) > 1 && !strings.HasSuffix(input, " ") {
		partial = strings.ToLower(parts[len(parts)-1])
	}

	return c.completeArg(cmd, partial)
}

// completeArg suggests argument values for the commands that take enums.
func (c *Completer) completeArg(cmd *Command, partial string) []Completion {
	var candidates []Completion

	switch cmd.Name {
	case "/theme":
		for _, name := range styles.ThemeNames() {
			palette := styles.Palettes[name]
			candidates = append(candidates, Completion{Value: name, Description: palette.Description})
		}
	case "/model":
		for _, alias := range model.ModelAliases() {
			info := model.Models[alias]
			candidates = append(candidates, Completion{Value: alias, Description: info.ID})
		}
	case "/think", "/audio":
		candidates = []Completion{
			{Value: "on", Description: "enable"},
			{Value: "off", Description: "disable"},
		}
	default:
		return nil
	}

	if partial == "" {
		return candidates
	}

	var filtered []Completion
	for _, comp := range candidates {
		if strings.HasPrefix(comp.Value, partial) {
			filtered = append(filtered, comp)
		}
	}
	return filtered
}
