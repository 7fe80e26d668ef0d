// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries framed p2paste envelopes over TLS.
//
// Every message on the wire is a frame: a 4-byte big-endian unsigned
// payload length followed by the payload, which is one envelope
// serialized by a [codec.Codec]. [WriteFrame] and [ReadFrame] implement
// the framing over any stream. [Conn] binds a stream to a codec and a
// timeout and is what the rest of p2paste uses:
//
//   - [Conn.Send] serializes and writes a whole frame in one Write
//     under a write lock, so concurrent senders never interleave.
//   - [Conn.Receive] reads exactly one frame and deserializes it.
//   - [Conn.WaitReadable] reports whether a frame has started arriving
//     within a wait, without consuming anything. Receive loops use it
//     as their readiness poll so they can observe a stop signal.
//   - [Conn.Close] performs an orderly shutdown: TLS close-notify,
//     TCP write shutdown, then release.
//
// Every I/O failure, timeout, oversized length, and undecodable payload
// is reported as [ErrConnectionBroken] with the cause wrapped for logs.
// Callers test for the sentinel with errors.Is and treat the
// connection as gone.
//
// [Dial] opens a client connection, verifying the server against a PEM
// trust root. [Listen] opens a server listener from a PEM certificate
// and key; accepted connections complete their TLS handshake lazily, on
// [Conn.Handshake] or the first read or write.
package transport
