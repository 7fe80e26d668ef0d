// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitUsage is the process exit code for command-line mistakes.
const ExitUsage = 2

// UsageError is a command-line mistake: unknown command or flag, bad
// argument count, unparseable value. main exits with ExitUsage for it
// instead of 1.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode returns ExitUsage.
func (e *UsageError) ExitCode() int { return ExitUsage }

// Usage creates a UsageError. The format accepts %w.
func Usage(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}
