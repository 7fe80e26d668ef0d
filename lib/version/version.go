// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the p2paste
// binary.
//
// Values are injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/p2paste/p2paste/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/p2paste
package version

import (
	"fmt"
	"io"
	"runtime"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a one-line version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Print writes "<binary> <info>" and the Go toolchain and platform to w.
func Print(w io.Writer, binary string) {
	fmt.Fprintf(w, "%s %s\n  Go: %s\n  Platform: %s/%s\n",
		binary, Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
