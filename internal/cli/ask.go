// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask [question]
//
// Examples:
//   retroterm ask "What is the capital of France?"
//   retroterm ask            (prompts for the question interactively)
//   retroterm ask -m gemini-2.5-pro "Explain TCP slow start"
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/model"
)

// askTimeout bounds a single non-streaming request.
const askTimeout = 2 * time.Minute

// =============================================================================
// MARKDOWN OUTPUT
// =============================================================================

var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders the reply for terminal display, returning the
// raw text when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayReply prints the reply, rendering markdown only when stdout is a
// TTY so piped output stays clean.
func displayReply(reply string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(renderMarkdown(reply))
		return
	}
	fmt.Println(reply)
}

// =============================================================================
// QUESTION INPUT
// =============================================================================

// readQuestion prompts for a question with line editing and history when
// none was given on the command line.
func readQuestion() (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := askHistoryPath()
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	input, err := line.Prompt("ask> ")
	if err != nil {
		if err == liner.ErrPromptAborted {
			return "", fmt.Errorf("aborted")
		}
		return "", err
	}

	input = strings.TrimSpace(input)
	if input != "" && historyFile != "" {
		line.AppendHistory(input)
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return input, nil
}

func askHistoryPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	if err := config.EnsureConfigDir(); err != nil {
		return ""
	}
	return filepath.Join(dir, "ask_history")
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// Ask sends one question and prints the reply. modelOverride selects a
// model for this invocation only; empty keeps the configured one.
func Ask(cfg *config.Config, question, modelOverride string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		var err error
		question, err = readQuestion()
		if err != nil {
			return err
		}
		if question == "" {
			return fmt.Errorf("no question given")
		}
	}

	client := cloud.NewClient(cfg.EffectiveAPIKey())
	if cfg.Service.APIBaseURL != "" {
		client = client.WithBaseURL(cfg.Service.APIBaseURL)
	}
	modelID := cfg.Settings.Model
	if modelOverride != "" {
		resolved, ok := model.ResolveModel(modelOverride)
		if !ok {
			return fmt.Errorf("unknown model %q", modelOverride)
		}
		modelID = resolved
	}
	client.SetModel(modelID)

	if !client.IsConfigured() {
		fmt.Fprintln(os.Stderr, cloud.CannedMessage(cloud.ErrNotConfigured))
		return cloud.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	turns := []cloud.Turn{cloud.NewUserTurn(question)}
	opts := cloud.GenerateOptions{
		ThinkingEnabled: cfg.Settings.ThinkingEnabled,
		ThinkingBudget:  cfg.Settings.ThinkingBudget,
	}

	reply, usage, err := client.Generate(ctx, turns, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, cloud.CannedMessage(err))
		return err
	}

	displayReply(reply)
	if usage != nil {
		fmt.Fprintf(os.Stderr, "[%s: %d in / %d out]\n", modelID, usage.PromptTokens, usage.CandidatesTokens)
	}
	return nil
}
