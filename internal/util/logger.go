// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the retroterm application.
package util

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// The TUI owns stdout, so logs go to a file under the config directory.
// Quiet by default; --debug lowers the level to Debug.

var (
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile *os.File
)

// InitLogger opens the log file and installs the package logger.
// Failures leave the discard logger in place and are returned for a
// non-fatal warning; nothing in the application treats logging as required.
func InitLogger(dir string, debug bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, "retroterm.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logFile = f
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return nil
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// CloseLogger flushes and closes the log file.
func CloseLogger() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}
