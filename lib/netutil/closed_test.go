// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestIsExpectedCloseError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "eof", err: io.EOF, want: true},
		{name: "wrapped eof", err: fmt.Errorf("reading frame header: %w", io.EOF), want: true},
		{name: "closed", err: net.ErrClosed, want: true},
		{name: "broken pipe", err: &net.OpError{Op: "write", Err: os.NewSyscallError("write", unix.EPIPE)}, want: true},
		{name: "reset", err: &net.OpError{Op: "read", Err: os.NewSyscallError("read", unix.ECONNRESET)}, want: true},
		{name: "not connected", err: os.NewSyscallError("shutdown", unix.ENOTCONN), want: true},
		{name: "refused", err: &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", unix.ECONNREFUSED)}, want: false},
		{name: "other", err: errors.New("certificate signed by unknown authority"), want: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

