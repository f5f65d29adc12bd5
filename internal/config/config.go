// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages persistent settings for the retroterm application.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/retroterm/internal/model"
	"github.com/jeranaias/retroterm/internal/ui/styles"
)

// Font size bounds enforced by the font command and by validation.
const (
	MinFontSize     = 8
	MaxFontSize     = 48
	DefaultFontSize = 14
)

// =============================================================================
// SETTINGS TYPE
// =============================================================================

// Settings is the user-facing configuration record. It matches the remote
// per-user settings document field for field.
type Settings struct {
	FontSize        int    `toml:"font_size" json:"fontSize"`
	Theme           string `toml:"theme" json:"theme"`
	APIKey          string `toml:"api_key,omitempty" json:"apiKey,omitempty"`
	Model           string `toml:"model" json:"model"`
	ThinkingEnabled bool   `toml:"thinking_enabled" json:"thinkingEnabled"`
	ThinkingBudget  int    `toml:"thinking_budget" json:"thinkingBudget"`
	AudioEnabled    bool   `toml:"audio_enabled" json:"audioEnabled"`
}

// ServiceConfig holds the hosted service endpoints.
type ServiceConfig struct {
	// APIBaseURL is the generative text/image API host
	APIBaseURL string `toml:"api_base_url"`

	// AuthBaseURL is the account backend host
	AuthBaseURL string `toml:"auth_base_url"`
}

// Config is the full on-disk configuration.
type Config struct {
	Settings Settings      `toml:"settings"`
	Service  ServiceConfig `toml:"service"`

	// StudioKey is an API key supplied out-of-band by a studio host
	// environment. Read from the environment only, never persisted.
	StudioKey string `toml:"-" json:"-"`

	// Debug enables verbose logging
	Debug bool `toml:"debug,omitempty"`
}

// StudioMode reports whether a host-supplied key bypasses manual key entry.
func (c *Config) StudioMode() bool {
	return c.StudioKey != ""
}

// EffectiveAPIKey prefers the studio key over the stored one.
func (c *Config) EffectiveAPIKey() string {
	if c.StudioKey != "" {
		return c.StudioKey
	}
	return c.Settings.APIKey
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Settings: DefaultSettings(),
		Service: ServiceConfig{
			APIBaseURL:  "https://generativelanguage.googleapis.com",
			AuthBaseURL: "https://account.retroterm.app",
		},
	}
}

// DefaultSettings returns the documented default for every settings field.
// The reset command restores exactly this record.
func DefaultSettings() Settings {
	return Settings{
		FontSize:        DefaultFontSize,
		Theme:           styles.DefaultTheme,
		APIKey:          "",
		Model:           model.DefaultModel,
		ThinkingEnabled: false,
		ThinkingBudget:  0,
		AudioEnabled:    true,
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the retroterm config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".retroterm"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the config file, falling back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		// SECURITY: Check and fix file permissions if needed
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}

		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file: %w", err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Settings.FontSize == 0 {
		c.Settings.FontSize = defaults.Settings.FontSize
	}
	if c.Settings.Theme == "" {
		c.Settings.Theme = defaults.Settings.Theme
	}
	if c.Settings.Model == "" {
		c.Settings.Model = defaults.Settings.Model
	}
	if c.Service.APIBaseURL == "" {
		c.Service.APIBaseURL = defaults.Service.APIBaseURL
	}
	if c.Service.AuthBaseURL == "" {
		c.Service.AuthBaseURL = defaults.Service.AuthBaseURL
	}
}

// ApplyEnvOverrides applies RETROTERM_* environment variables on top of
// the loaded file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RETROTERM_API_KEY"); v != "" {
		c.Settings.APIKey = v
	}
	if v := os.Getenv("RETROTERM_MODEL"); v != "" {
		c.Settings.Model = v
	}
	if v := os.Getenv("RETROTERM_THEME"); v != "" {
		c.Settings.Theme = v
	}
	if v := os.Getenv("RETROTERM_API_BASE_URL"); v != "" {
		c.Service.APIBaseURL = v
	}
	if v := os.Getenv("RETROTERM_AUTH_BASE_URL"); v != "" {
		c.Service.AuthBaseURL = v
	}
	if v := os.Getenv("RETROTERM_STUDIO_KEY"); v != "" {
		c.StudioKey = v
	}
	if v := os.Getenv("RETROTERM_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// =============================================================================
// SAVE
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# retroterm configuration file")
	fmt.Fprintln(file, "# Generated by retroterm - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Settings.FontSize < MinFontSize || c.Settings.FontSize > MaxFontSize {
		errs = append(errs, ValidationError{
			Field:   "settings.font_size",
			Message: fmt.Sprintf("must be %d-%d, got %d", MinFontSize, MaxFontSize, c.Settings.FontSize),
		})
	}

	if _, ok := styles.LookupPalette(c.Settings.Theme); !ok {
		errs = append(errs, ValidationError{
			Field:   "settings.theme",
			Message: fmt.Sprintf("unknown theme '%s', must be one of: %s", c.Settings.Theme, strings.Join(styles.ThemeNames(), ", ")),
		})
	}

	if c.Settings.ThinkingBudget < 0 {
		errs = append(errs, ValidationError{
			Field:   "settings.thinking_budget",
			Message: "cannot be negative",
		})
	}

	for field, raw := range map[string]string{
		"service.api_base_url":  c.Service.APIBaseURL,
		"service.auth_base_url": c.Service.AuthBaseURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid URL '%s'", raw),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SETTINGS PATCH
// =============================================================================

// Patch is a partial settings update produced by the command dispatcher.
// Nil fields leave the corresponding setting untouched.
type Patch struct {
	FontSize        *int
	Theme           *string
	APIKey          *string
	Model           *string
	ThinkingEnabled *bool
	ThinkingBudget  *int
	AudioEnabled    *bool
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.FontSize == nil && p.Theme == nil && p.APIKey == nil &&
		p.Model == nil && p.ThinkingEnabled == nil && p.ThinkingBudget == nil &&
		p.AudioEnabled == nil
}

// Apply returns a new Settings with the patch applied. The input is not
// modified; settings stay value types.
func (p Patch) Apply(s Settings) Settings {
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.ThinkingEnabled != nil {
		s.ThinkingEnabled = *p.ThinkingEnabled
	}
	if p.ThinkingBudget != nil {
		s.ThinkingBudget = *p.ThinkingBudget
	}
	if p.AudioEnabled != nil {
		s.AudioEnabled = *p.AudioEnabled
	}
	return s
}

// Helper constructors keep handler code terse.

func IntPtr(v int) *int       { return &v }
func StrPtr(v string) *string { return &v }
func BoolPtr(v bool) *bool    { return &v }
