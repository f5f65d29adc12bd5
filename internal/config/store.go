// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages persistent settings for the retroterm application.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jeranaias/retroterm/internal/util"
)

// =============================================================================
// REMOTE SETTINGS INTERFACE
// =============================================================================

// RemoteSettings is the per-user settings document on the account backend.
// Implemented by the auth gateway; nil means no remote store is configured.
type RemoteSettings interface {
	// Authenticated reports whether a live session exists.
	Authenticated() bool

	// FetchSettings returns the remote record. ok is false when the user
	// has no stored record yet.
	FetchSettings(ctx context.Context) (s Settings, ok bool, err error)

	// SaveSettings writes the record for the current user.
	SaveSettings(ctx context.Context, s Settings) error
}

// =============================================================================
// WRITE-THROUGH STORE
// =============================================================================

// Store coordinates the local TOML cache and the remote settings record.
//
// Load order: local cache first; when a remote session exists the remote
// record wins and refreshes the local cache. Saves write through to both.
// Partial failure of either path is logged and non-fatal; the in-memory
// settings stay authoritative for the session.
type Store struct {
	cfg    *Config
	path   string
	remote RemoteSettings

	// writable is the result of the write-then-read-back probe. When
	// false, local saves are skipped with a warning instead of failing.
	writable bool
}

// NewStore creates a write-through store over the given config file path.
// remote may be nil.
func NewStore(cfg *Config, path string, remote RemoteSettings) *Store {
	return &Store{
		cfg:      cfg,
		path:     path,
		remote:   remote,
		writable: VerifyWritable(filepath.Dir(path)),
	}
}

// Writable reports whether the local cache can persist settings.
func (s *Store) Writable() bool {
	return s.writable
}

// Load merges the local cache with the remote record and returns the
// effective settings. The remote record, when present, wins and is written
// back to the local cache.
func (s *Store) Load(ctx context.Context) Settings {
	settings := s.cfg.Settings

	if s.remote != nil && s.remote.Authenticated() {
		remote, ok, err := s.remote.FetchSettings(ctx)
		if err != nil {
			util.Logger().Warn("remote settings fetch failed", "error", err)
		} else if ok {
			settings = remote
			s.cfg.Settings = remote
			s.saveLocal()
		}
	}

	return settings
}

// Save applies new settings and writes them through to the local cache
// and, when authenticated, the remote record.
func (s *Store) Save(ctx context.Context, settings Settings) {
	s.cfg.Settings = settings
	s.saveLocal()

	if s.remote != nil && s.remote.Authenticated() {
		if err := s.remote.SaveSettings(ctx, settings); err != nil {
			util.Logger().Warn("remote settings save failed", "error", err)
		}
	}
}

// saveLocal writes the local TOML cache.
//
// SECURITY: once a remote session exists the API key lives only in memory
// and the remote record; it is stripped from the durable local cache.
func (s *Store) saveLocal() {
	if !s.writable {
		util.Logger().Warn("settings will not persist, config dir is not writable", "path", s.path)
		return
	}

	onDisk := *s.cfg
	if s.remote != nil && s.remote.Authenticated() {
		onDisk.Settings.APIKey = ""
	}

	if err := SaveToPath(&onDisk, s.path); err != nil {
		util.Logger().Warn("local settings save failed", "error", err)
	}
}

// =============================================================================
// STORAGE AVAILABILITY PROBE
// =============================================================================

// VerifyWritable checks that a directory accepts writes by writing a probe
// file and reading it back. Degrades to false instead of erroring.
func VerifyWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}

	probe := filepath.Join(dir, ".write-probe")
	const payload = "ok"

	if err := os.WriteFile(probe, []byte(payload), 0600); err != nil {
		return false
	}
	defer os.Remove(probe)

	data, err := os.ReadFile(probe)
	if err != nil || string(data) != payload {
		return false
	}
	return true
}
