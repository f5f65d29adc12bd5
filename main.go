// retroterm - A retro-terminal AI chat client.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/retroterm/internal/auth"
	"github.com/jeranaias/retroterm/internal/cli"
	"github.com/jeranaias/retroterm/internal/cloud"
	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/storage"
	"github.com/jeranaias/retroterm/internal/telemetry"
	"github.com/jeranaias/retroterm/internal/ui/chat"
	"github.com/jeranaias/retroterm/internal/util"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const usage = `retroterm - a retro-terminal AI chat client

Usage:
  retroterm                 start the chat interface
  retroterm ask [question]  ask one question and print the reply
  retroterm login           log in to an account
  retroterm register        create an account
  retroterm logout          end the current session
  retroterm version         print version information

Flags:
  --debug        verbose logging to ~/.retroterm/retroterm.log
  -m, --model    model for a one-shot ask
`

func main() {
	args := os.Args[1:]

	debug := false
	filtered := args[:0:0]
	for _, a := range args {
		if a == "--debug" {
			debug = true
			continue
		}
		filtered = append(filtered, a)
	}
	args = filtered

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "":
		runTUI(debug)
	case "ask":
		runAsk(debug, args)
	case "login":
		runAccount(debug, cli.Login)
	case "register":
		runAccount(debug, cli.Register)
	case "logout":
		runAccount(debug, cli.Logout)
	case "version", "--version", "-v":
		fmt.Printf("retroterm %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

// =============================================================================
// STARTUP
// =============================================================================

// bootstrap loads the config and initializes logging. Fatal on a broken
// config file; a missing one falls back to defaults.
func bootstrap(debug bool) (*config.Config, string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}
	if debug {
		cfg.Debug = true
	}

	dir, err := config.ConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}
	if err := config.EnsureConfigDir(); err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}

	if err := util.InitLogger(dir, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	return cfg, dir
}

func runTUI(debug bool) {
	cfg, dir := bootstrap(debug)
	defer util.CloseLogger()

	gateway := auth.NewGateway(cfg.Service.AuthBaseURL, dir)

	configPath, err := config.ConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}
	store := config.NewStore(cfg, configPath, gateway)
	settings := store.Load(context.Background())

	apiKey := cfg.StudioKey
	if apiKey == "" {
		apiKey = settings.APIKey
	}
	client := cloud.NewClient(apiKey).WithBaseURL(cfg.Service.APIBaseURL)
	client.SetModel(settings.Model)

	ledger := telemetry.NewLedger()

	history, err := telemetry.OpenHistory(filepath.Join(dir, "usage.db"))
	if err != nil {
		util.Logger().Warn("usage history unavailable", "error", err)
	} else {
		defer history.Close()
	}

	transcripts, err := storage.NewTranscriptStore()
	if err != nil {
		util.Logger().Warn("transcript store unavailable", "error", err)
		transcripts = nil
	}

	m := chat.New(chat.Options{
		Config:      cfg,
		Store:       store,
		Client:      client,
		Gateway:     gateway,
		Ledger:      ledger,
		History:     history,
		Transcripts: transcripts,
		Version:     Version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Settings edited outside the process are picked up live.
	watcher, err := config.NewWatcher(configPath, func(c *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Settings: c.Settings})
	})
	if err != nil {
		util.Logger().Warn("config watcher unavailable", "error", err)
	} else {
		watcher.Watch()
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// LINE MODE
// =============================================================================

func runAsk(debug bool, args []string) {
	cfg, _ := bootstrap(debug)
	defer util.CloseLogger()

	modelOverride := ""
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-m", "--model":
			if i+1 < len(args) {
				modelOverride = args[i+1]
				i++
			}
		default:
			rest = append(rest, args[i])
		}
	}

	gateway := auth.NewGateway(cfg.Service.AuthBaseURL, mustConfigDir())
	configPath, err := config.ConfigPath()
	if err == nil {
		store := config.NewStore(cfg, configPath, gateway)
		cfg.Settings = store.Load(context.Background())
	}

	if err := cli.Ask(cfg, strings.Join(rest, " "), modelOverride); err != nil {
		os.Exit(1)
	}
}

func runAccount(debug bool, fn func(*auth.Gateway) error) {
	cfg, dir := bootstrap(debug)
	defer util.CloseLogger()

	gateway := auth.NewGateway(cfg.Service.AuthBaseURL, dir)
	if err := fn(gateway); err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}
}

func mustConfigDir() string {
	dir, err := config.ConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "retroterm: %v\n", err)
		os.Exit(1)
	}
	return dir
}
