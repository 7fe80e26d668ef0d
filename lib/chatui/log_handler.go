// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model for display in the
// status bar.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears the status bar record it was scheduled for.
// A newer record supersedes the fade of an older one.
type logRecordFadeMsg struct {
	sequence int
}

// logRecordFadeDelay is how long a record stays in the status bar.
const logRecordFadeDelay = 5 * time.Second

// LogHandler is a slog.Handler that shows records in the chat UI's
// status bar. Records at or above the level become status messages
// once SetProgram has been called; earlier records are not shown.
// Every record that reaches Handle is also passed to the optional next
// handler, regardless of level, if next is enabled for it.
//
// Handlers derived via WithAttrs/WithGroup share the program pointer,
// so one SetProgram call reaches all of them.
type LogHandler struct {
	level   slog.Level
	next    slog.Handler
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	groups  []string
}

// NewLogHandler returns a handler that shows records at or above level.
// next, if non-nil, receives records too (typically a file handler for
// --log-file).
func NewLogHandler(level slog.Level, next slog.Handler) *LogHandler {
	return &LogHandler{
		level:   level,
		next:    next,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the program that receives status messages. Safe to
// call from any goroutine.
func (handler *LogHandler) SetProgram(program *tea.Program) {
	handler.program.Store(program)
}

func (handler *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= handler.level {
		return true
	}
	return handler.next != nil && handler.next.Enabled(ctx, level)
}

func (handler *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	var nextErr error
	if handler.next != nil && handler.next.Enabled(ctx, record.Level) {
		nextErr = handler.next.Handle(ctx, record)
	}
	if record.Level < handler.level {
		return nextErr
	}
	program := handler.program.Load()
	if program == nil {
		return nextErr
	}
	program.Send(logRecordMsg{Summary: handler.summarize(record), Level: record.Level})
	return nextErr
}

// summarize renders "message (key=value, ...)".
func (handler *LogHandler) summarize(record slog.Record) string {
	prefix := ""
	if len(handler.groups) > 0 {
		prefix = strings.Join(handler.groups, ".") + "."
	}
	var parts []string
	for _, attr := range handler.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := handler.derive()
	derived.attrs = append(derived.attrs, attrs...)
	if handler.next != nil {
		derived.next = handler.next.WithAttrs(attrs)
	}
	return derived
}

func (handler *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return handler
	}
	derived := handler.derive()
	derived.groups = append(derived.groups, name)
	if handler.next != nil {
		derived.next = handler.next.WithGroup(name)
	}
	return derived
}

func (handler *LogHandler) derive() *LogHandler {
	return &LogHandler{
		level:   handler.level,
		next:    handler.next,
		program: handler.program,
		attrs:   append([]slog.Attr(nil), handler.attrs...),
		groups:  append([]string(nil), handler.groups...),
	}
}

func fadeAfter(sequence int) tea.Cmd {
	return tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
		return logRecordFadeMsg{sequence: sequence}
	})
}
