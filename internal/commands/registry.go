// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/font <size>")
	Usage string

	// Handler executes the command against the dispatcher state
	Handler HandlerFunc

	// Category for grouping in help display
	Category string
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns every command name and alias, sorted. Used by completion.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands)+len(r.aliases))
	for name := range r.commands {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// MatchPrefix returns commands whose name or an alias starts with the
// given prefix, sorted by name.
func (r *Registry) MatchPrefix(prefix string) []*Command {
	seen := make(map[string]bool)
	var matched []*Command

	add := func(cmd *Command) {
		if !seen[cmd.Name] {
			seen[cmd.Name] = true
			matched = append(matched, cmd)
		}
	}

	for name, cmd := range r.commands {
		if strings.HasPrefix(name, prefix) {
			add(cmd)
		}
	}
	for alias, cmd := range r.aliases {
		if strings.HasPrefix(alias, prefix) {
			add(cmd)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Conversation commands
	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the message log and token counters",
		Category:    "Conversation",
		Handler:     handleClear,
	})

	r.Register(&Command{
		Name:        "/tokens",
		Description: "Show token usage per model",
		Category:    "Conversation",
		Handler:     handleTokens,
	})

	r.Register(&Command{
		Name:        "/image",
		Description: "Generate an image from a prompt",
		Usage:       "/image <prompt> [--aspect <ratio>] [--model <name>]",
		Category:    "Conversation",
		Handler:     handleImage,
	})

	// Model commands
	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Switch or show the current model",
		Usage:       "/model [name]",
		Category:    "Model",
		Handler:     handleModel,
	})

	r.Register(&Command{
		Name:        "/think",
		Description: "Toggle extended thinking or set its budget",
		Usage:       "/think [on|off|<budget>]",
		Category:    "Model",
		Handler:     handleThink,
	})

	// Settings commands
	r.Register(&Command{
		Name:        "/settings",
		Description: "Show current settings",
		Category:    "Settings",
		Handler:     handleSettings,
	})

	r.Register(&Command{
		Name:        "/font",
		Description: "Set the display font size",
		Usage:       "/font <size>",
		Category:    "Settings",
		Handler:     handleFont,
	})

	r.Register(&Command{
		Name:        "/theme",
		Description: "Change the color theme",
		Usage:       "/theme [name]",
		Category:    "Settings",
		Handler:     handleTheme,
	})

	r.Register(&Command{
		Name:        "/apikey",
		Description: "Set or inspect the API key",
		Usage:       "/apikey [key]",
		Category:    "Settings",
		Handler:     handleAPIKey,
	})

	r.Register(&Command{
		Name:        "/audio",
		Description: "Toggle audio feedback",
		Usage:       "/audio [on|off]",
		Category:    "Settings",
		Handler:     handleAudio,
	})

	r.Register(&Command{
		Name:        "/reset",
		Description: "Restore all settings to defaults",
		Category:    "Settings",
		Handler:     handleReset,
	})

	// Info commands
	r.Register(&Command{
		Name:        "/info",
		Aliases:     []string{"/status"},
		Description: "Show client and session information",
		Category:    "Info",
		Handler:     handleInfo,
	})

	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "Info",
		Handler:     handleHelp,
	})
}
