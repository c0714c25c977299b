// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const levelEnv = "SWARMCTL_LOG_LEVEL"

var (
	// Logger is the process-wide structured logger.
	Logger *slog.Logger

	level = new(slog.LevelVar)
)

func init() {
	level.Set(parseLevelFromEnv())
	SetOutput(os.Stderr, false)
}

// SetOutput replaces the logger's destination. A nil writer means stderr.
func SetOutput(w io.Writer, json bool) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	Logger = slog.New(h)
}

// SetLevel changes the minimum level for all handlers created by SetOutput.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv(levelEnv))
}
