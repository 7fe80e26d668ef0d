// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies socket errors that p2paste treats as an
// ordinary end of a connection rather than a failure worth logging at
// error level.
package netutil

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, use of a closed connection, broken pipe,
// connection reset, or a socket that is no longer connected. These
// occur when the peer disconnects while a read, write, or shutdown is
// in flight.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.ENOTCONN)
}

