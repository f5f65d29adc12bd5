// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// account.go - Login, register, and logout flows.
//
// Commands: login, register, logout
//
// Examples:
//   retroterm login
//   retroterm register
//   retroterm logout
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/retroterm/internal/auth"
)

// authTimeout bounds one backend round trip.
const authTimeout = 30 * time.Second

// =============================================================================
// PROMPTS
// =============================================================================

// promptLine reads one line of visible input.
func promptLine(prompt string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	input, err := line.Prompt(prompt)
	if err != nil {
		if err == liner.ErrPromptAborted {
			return "", fmt.Errorf("aborted")
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptPassword reads a password without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(passBytes), nil
}

// =============================================================================
// LOGIN
// =============================================================================

// Login authenticates against the account backend and caches the session.
// A backend that requires a second factor triggers one TOTP prompt.
func Login(gateway *auth.Gateway) error {
	email, err := promptLine("email: ")
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	password, err := promptPassword("password: ")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	session, err := gateway.Login(ctx, email, password, "")
	if errors.Is(err, auth.ErrTOTPRequired) {
		code, perr := promptLine("TOTP code: ")
		if perr != nil {
			return perr
		}
		session, err = gateway.Login(ctx, email, password, code)
	}
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return fmt.Errorf("login failed: invalid email or password")
		case errors.Is(err, auth.ErrTOTPInvalid):
			return fmt.Errorf("login failed: invalid TOTP code")
		default:
			return fmt.Errorf("login failed: %w", err)
		}
	}

	fmt.Printf("Logged in as %s. Session valid until %s.\n",
		session.Username, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	fmt.Println("Settings will now sync across devices.")
	return nil
}

// =============================================================================
// REGISTER
// =============================================================================

// Register creates an account and logs the new user in.
func Register(gateway *auth.Gateway) error {
	email, err := promptLine("email: ")
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	username, err := promptLine("username: ")
	if err != nil {
		return err
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := promptPassword("password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	session, err := gateway.Register(ctx, email, username, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return fmt.Errorf("an account with that email already exists")
		case errors.Is(err, auth.ErrWeakPassword):
			return fmt.Errorf("password too weak: use at least 8 characters with letters and digits")
		default:
			return fmt.Errorf("registration failed: %w", err)
		}
	}

	fmt.Printf("Account created. Logged in as %s.\n", session.Username)
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout ends the current session and clears the local cache.
func Logout(gateway *auth.Gateway) error {
	if !gateway.Authenticated() {
		fmt.Println("Not logged in.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	if err := gateway.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println("Logged out. Settings are now local only.")
	return nil
}
