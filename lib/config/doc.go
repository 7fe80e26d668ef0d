// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads p2paste's static configuration: ports, timeouts,
// TLS material, the server identity strings, the paste duration, the
// wire codec, and logging.
//
// Configuration comes from at most one file, named by the --config flag
// or the P2PASTE_CONFIG environment variable. Files ending in .json or
// .jsonc are parsed as JSON with comments and trailing commas; anything
// else is parsed as YAML. Without a file, [Default] applies.
//
// Values in the file are merged over [Default], so a file only needs the
// keys it changes. ${HOME} and ${VAR:-fallback} are expanded in path
// values. Environment variables never override individual keys.
//
// Durations are Go duration strings ("15s", "1m30s"). A bare integer is
// read as seconds.
package config
