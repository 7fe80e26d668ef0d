// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for p2paste packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used whenever a test waits for a callback fired on another
// goroutine (receive loops, the dispatch loop, the paste processor).
// They are the only place in the test suite where real wall-clock
// timeouts are used.
//
// [TLSFiles] writes a throwaway self-signed certificate and key for
// 127.0.0.1 into a temporary directory, so transport and end-to-end
// tests can run real TLS over loopback with the same file-based
// configuration the server and client use in production.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
