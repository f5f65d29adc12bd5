// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jeranaias/retroterm/internal/auth"
	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/telemetry"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// =============================================================================
// RESULT TYPE
// =============================================================================

// Result is the outcome of executing one slash command. The chat model
// applies each tagged effect; fields not set mean "no effect".
type Result struct {
	// Handled is false when the input was not a command at all.
	Handled bool

	// Success is false for validation failures and unknown commands.
	Success bool

	// Message is the text to append to the log, if any.
	Message string

	// Role tags the appended message, almost always RoleSystem.
	Role model.Role

	// Patch carries settings changes to persist.
	Patch *config.Patch

	// ClearLog requests a log reset to the initial greeting.
	ClearLog bool

	// ResetLedger requests zeroing the token counters.
	ResetLedger bool

	// OpenKeyPicker requests the API key entry overlay.
	OpenKeyPicker bool

	// Async runs after the synchronous part completes (image generation).
	Async tea.Cmd
}

// HandlerFunc executes one command against the dispatcher's dependencies.
type HandlerFunc func(d *Dispatcher, s config.Settings, args []string) Result

// ImageResultMsg delivers a finished image generation to the UI.
type ImageResultMsg struct {
	Prompt string
	Model  string
	Image  *cloud.GeneratedImage
	Err    error
}

// systemResult builds a successful system-message result.
func systemResult(message string) Result {
	return Result{Handled: true, Success: true, Message: message, Role: model.RoleSystem}
}

// errorResult builds a failed inline-error result. Validation failures
// change no state.
func errorResult(message string) Result {
	return Result{Handled: true, Success: false, Message: message, Role: model.RoleSystem}
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher routes parsed commands to their handlers. It owns no mutable
// settings state; handlers read the snapshot they are given and emit
// patches for the caller to apply and persist.
type Dispatcher struct {
	registry *Registry
	parser   *Parser

	cfg     *config.Config
	client  *cloud.Client
	gateway *auth.Gateway
	ledger  *telemetry.Ledger

	// Version is stamped by main for /info.
	Version string
}

// NewDispatcher creates a dispatcher over the shared application services.
// gateway may be nil when no account backend is configured.
func NewDispatcher(cfg *config.Config, client *cloud.Client, gateway *auth.Gateway, ledger *telemetry.Ledger) *Dispatcher {
	registry := NewRegistry()
	return &Dispatcher{
		registry: registry,
		parser:   NewParser(registry),
		cfg:      cfg,
		client:   client,
		gateway:  gateway,
		ledger:   ledger,
		Version:  "dev",
	}
}

// Registry exposes the command registry for completion.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Execute parses and runs one line of input against the settings snapshot.
// Non-command input returns Handled=false untouched.
func (d *Dispatcher) Execute(input string, s config.Settings) Result {
	parsed := d.parser.Parse(input)
	if !parsed.IsCommand {
		return Result{}
	}

	// A bare "/" lists all commands, same as /help.
	if parsed.CommandName == "/" {
		return handleHelp(d, s, nil)
	}

	if parsed.Command == nil {
		return errorResult(fmt.Sprintf("Unknown command %s. Type /help for available commands.", parsed.CommandName))
	}

	return parsed.Command.Handler(d, s, parsed.Args)
}

// hostedMode reports whether the API key is supplied by the environment
// rather than typed by the user: a studio key or an account session.
func (d *Dispatcher) hostedMode() bool {
	if d.cfg != nil && d.cfg.StudioMode() {
		return true
	}
	return d.gateway != nil && d.gateway.Authenticated()
}

// =============================================================================
// CONVERSATION HANDLERS
// =============================================================================

func handleClear(d *Dispatcher, s config.Settings, args []string) Result {
	r := systemResult("Log cleared.")
	r.ClearLog = true
	r.ResetLedger = true
	return r
}

func handleTokens(d *Dispatcher, s config.Settings, args []string) Result {
	if d.ledger == nil {
		return errorResult("Token tracking is not available.")
	}

	usage := d.ledger.All()
	if len(usage) == 0 {
		return systemResult("No token usage recorded yet.")
	}

	var b strings.Builder
	b.WriteString("Token usage this session:\n")
	for _, id := range d.ledger.ModelIDs() {
		u := usage[id]
		b.WriteString(fmt.Sprintf("  %-28s in=%d out=%d", id, u.Input, u.Output))
		if u.Image > 0 {
			b.WriteString(fmt.Sprintf(" image=%d", u.Image))
		}
		b.WriteString("\n")
	}
	totals := d.ledger.Totals()
	b.WriteString(fmt.Sprintf("  %-28s in=%d out=%d image=%d", "total", totals.Input, totals.Output, totals.Image))
	return systemResult(b.String())
}

func handleImage(d *Dispatcher, s config.Settings, args []string) Result {
	positional, flags, bad := extractFlags(args, map[string]bool{"aspect": true, "model": true})
	if bad != "" {
		return errorResult(fmt.Sprintf("Bad flag %s. Usage: /image <prompt> [--aspect <ratio>] [--model <name>]", bad))
	}

	prompt := strings.TrimSpace(strings.Join(positional, " "))
	if prompt == "" {
		return errorResult("Usage: /image <prompt> [--aspect <ratio>] [--model <name>]")
	}

	aspect := model.DefaultAspectRatio
	if v, ok := flags["aspect"]; ok {
		if !model.AspectRatios[v] {
			return errorResult(fmt.Sprintf("Aspect ratio %q not supported. Try one of: %s.", v, strings.Join(model.AspectRatioList(), ", ")))
		}
		aspect = v
	}

	imageModel := model.DefaultImageModel
	if v, ok := flags["model"]; ok {
		resolved, ok := model.ResolveImageModel(v)
		if !ok {
			return errorResult(fmt.Sprintf("Image model %q not recognized. Try one of: %s.", v, strings.Join(model.ImageModelIDs(), ", ")))
		}
		imageModel = resolved
	}

	client := d.client
	r := systemResult(fmt.Sprintf("Generating image with %s (%s)...", imageModel, aspect))
	r.Async = func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		img, err := client.GenerateImage(ctx, imageModel, prompt, aspect)
		return ImageResultMsg{Prompt: prompt, Model: imageModel, Image: img, Err: err}
	}
	return r
}

// =============================================================================
// MODEL HANDLERS
// =============================================================================

func handleModel(d *Dispatcher, s config.Settings, args []string) Result {
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Current model: %s\nAvailable:\n", s.Model))
		for _, alias := range model.ModelAliases() {
			info := model.Models[alias]
			b.WriteString(fmt.Sprintf("  %-12s %s\n", alias, info.ID))
		}
		b.WriteString("Any full model id is accepted as-is.")
		return systemResult(b.String())
	}

	resolved, ok := model.ResolveModel(args[0])
	if !ok {
		return errorResult(fmt.Sprintf("Model %q not recognized. Type /model to list models.", args[0]))
	}

	r := systemResult(fmt.Sprintf("Model set to %s.", resolved))
	r.Patch = &config.Patch{Model: config.StrPtr(resolved)}
	return r
}

func handleThink(d *Dispatcher, s config.Settings, args []string) Result {
	if len(args) == 0 {
		state := "off"
		if s.ThinkingEnabled {
			state = "on"
			if s.ThinkingBudget > 0 {
				state = fmt.Sprintf("on (budget %d tokens)", s.ThinkingBudget)
			}
		}
		return systemResult(fmt.Sprintf("Extended thinking is %s.", state))
	}

	switch strings.ToLower(args[0]) {
	case "on":
		r := systemResult("Extended thinking enabled.")
		r.Patch = &config.Patch{ThinkingEnabled: config.BoolPtr(true)}
		return r
	case "off":
		r := systemResult("Extended thinking disabled.")
		r.Patch = &config.Patch{ThinkingEnabled: config.BoolPtr(false)}
		return r
	default:
		budget, err := strconv.Atoi(args[0])
		if err != nil || budget < 0 {
			return errorResult("Usage: /think [on|off|<budget>]")
		}
		r := systemResult(fmt.Sprintf("Thinking budget set to %d tokens.", budget))
		r.Patch = &config.Patch{
			ThinkingEnabled: config.BoolPtr(true),
			ThinkingBudget:  config.IntPtr(budget),
		}
		return r
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

func handleSettings(d *Dispatcher, s config.Settings, args []string) Result {
	key := "[not set]"
	if s.APIKey != "" {
		key = "[set]"
	}
	if d.hostedMode() {
		key = "[hosted]"
	}

	thinking := "off"
	if s.ThinkingEnabled {
		thinking = "on"
		if s.ThinkingBudget > 0 {
			thinking = fmt.Sprintf("on, budget %d", s.ThinkingBudget)
		}
	}
	audio := "off"
	if s.AudioEnabled {
		audio = "on"
	}

	return systemResult(fmt.Sprintf(
		"Current settings:\n  font size: %dpx\n  theme:     %s\n  model:     %s\n  api key:   %s\n  thinking:  %s\n  audio:     %s",
		s.FontSize, s.Theme, s.Model, key, thinking, audio))
}

func handleFont(d *Dispatcher, s config.Settings, args []string) Result {
	if len(args) == 0 {
		return systemResult(fmt.Sprintf("Font size is %dpx. Usage: /font <size> (%d-%d).", s.FontSize, config.MinFontSize, config.MaxFontSize))
	}

	size, err := strconv.Atoi(args[0])
	if err != nil || size < config.MinFontSize || size > config.MaxFontSize {
		return errorResult(fmt.Sprintf("Font size must be a number between %d and %d.", config.MinFontSize, config.MaxFontSize))
	}

	r := systemResult(fmt.Sprintf("SYSTEM: Font size set to %dpx.", size))
	r.Patch = &config.Patch{FontSize: config.IntPtr(size)}
	return r
}

func handleTheme(d *Dispatcher, s config.Settings, args []string) Result {
	if len(args) == 0 {
		return systemResult(fmt.Sprintf("Current theme: %s. Available: %s.", s.Theme, strings.Join(styles.ThemeNames(), ", ")))
	}

	name := strings.ToLower(args[0])
	if _, ok := styles.LookupPalette(name); !ok {
		return errorResult(fmt.Sprintf("Theme %q not found. Available: %s.", args[0], strings.Join(styles.ThemeNames(), ", ")))
	}

	r := systemResult(fmt.Sprintf("Theme set to %s.", name))
	r.Patch = &config.Patch{Theme: config.StrPtr(name)}
	return r
}

func handleAPIKey(d *Dispatcher, s config.Settings, args []string) Result {
	if len(args) == 0 {
		r := systemResult("Opening API key entry...")
		r.OpenKeyPicker = true
		return r
	}

	key := strings.TrimSpace(args[0])
	if !cloud.ValidateAPIKey(key) {
		return errorResult("That doesn't look like a valid API key.")
	}

	r := systemResult("API key updated.")
	r.Patch = &config.Patch{APIKey: config.StrPtr(key)}
	return r
}

func handleAudio(d *Dispatcher, s config.Settings, args []string) Result {
	enabled := !s.AudioEnabled
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return errorResult("Usage: /audio [on|off]")
		}
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	r := systemResult(fmt.Sprintf("Audio feedback %s.", state))
	r.Patch = &config.Patch{AudioEnabled: config.BoolPtr(enabled)}
	return r
}

func handleReset(d *Dispatcher, s config.Settings, args []string) Result {
	defaults := config.DefaultSettings()

	// In hosted-key mode the key came from the environment or the account,
	// not from the user; reset must not sever the connection.
	patch := &config.Patch{
		FontSize:        config.IntPtr(defaults.FontSize),
		Theme:           config.StrPtr(defaults.Theme),
		Model:           config.StrPtr(defaults.Model),
		ThinkingEnabled: config.BoolPtr(defaults.ThinkingEnabled),
		ThinkingBudget:  config.IntPtr(defaults.ThinkingBudget),
		AudioEnabled:    config.BoolPtr(defaults.AudioEnabled),
	}
	if d.hostedMode() {
		patch.APIKey = config.StrPtr(s.APIKey)
	} else {
		patch.APIKey = config.StrPtr(defaults.APIKey)
	}

	r := systemResult("Settings restored to defaults.")
	r.Patch = patch
	return r
}

// =============================================================================
// INFO HANDLERS
// =============================================================================

func handleInfo(d *Dispatcher, s config.Settings, args []string) Result {
	profile := "unknown"
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		profile = "truecolor"
	case termenv.ANSI256:
		profile = "256-color"
	case termenv.ANSI:
		profile = "16-color"
	case termenv.Ascii:
		profile = "monochrome"
	}

	account := "not signed in"
	if d.gateway != nil {
		if session := d.gateway.Session(); session != nil {
			account = fmt.Sprintf("%s (expires in %s)", session.Username, session.Remaining().Round(time.Minute))
		}
	}

	keyInfo := "[not set]"
	if d.client != nil && d.client.IsConfigured() {
		keyInfo = d.client.APIKeyMasked()
	}

	return systemResult(fmt.Sprintf(
		"retroterm %s (%s/%s)\n  model:    %s\n  theme:    %s\n  colors:   %s\n  account:  %s\n  api key:  %s",
		d.Version, runtime.GOOS, runtime.GOARCH, s.Model, s.Theme, profile, account, keyInfo))
}

func handleHelp(d *Dispatcher, s config.Settings, args []string) Result {
	categories := d.registry.ByCategory()
	order := make([]string, 0, len(categories))
	for category := range categories {
		order = append(order, category)
	}
	sort.Strings(order)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, category := range order {
		b.WriteString(category + ":\n")
		for _, cmd := range categories[category] {
			usage := cmd.Name
			if cmd.Usage != "" {
				usage = cmd.Usage
			}
			b.WriteString(fmt.Sprintf("  %-44s %s\n", usage, cmd.Description))
		}
	}
	b.WriteString("Anything else is sent to the model.")
	return systemResult(b.String())
}
