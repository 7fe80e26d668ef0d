// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/p2paste/p2paste/lib/config"
)

// openLogHandler returns the process log handler. A log file (the
// override, else log.file) gets JSON records; otherwise stderr gets
// text when it is a terminal and JSON when it is not. The returned
// function closes the log file, if any.
func openLogHandler(cfg config.LogConfig, override string, stderr io.Writer) (slog.Handler, func() error, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, fmt.Errorf("log.level: %w", err)
	}
	if path := cmp.Or(override, cfg.File); path != "" {
		return openFileHandler(path, level)
	}
	options := &slog.HandlerOptions{Level: level}
	noop := func() error { return nil }
	if isTerminal(stderr) {
		return slog.NewTextHandler(stderr, options), noop, nil
	}
	return slog.NewJSONHandler(stderr, options), noop, nil
}

// openFileHandler appends JSON records at or above level to path.
func openFileHandler(path string, level slog.Level) (slog.Handler, func() error, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}), file.Close, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
