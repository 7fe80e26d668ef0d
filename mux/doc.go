// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package mux is the server side of p2paste networking: it accepts TLS
// connections, admits them after a handshake, and delivers their
// envelopes to a single dispatch loop.
//
// A [Multiplexer] runs these goroutines while hosting:
//
//   - an accept goroutine that takes sockets off the listener;
//   - one handshake goroutine per pending socket, which completes the
//     TLS handshake and runs Config.Handshake (identification) under
//     the server timeout;
//   - one reader goroutine per admitted connection, which polls for
//     readability and reads one envelope at a time;
//   - the dispatch loop, which owns the pending and open sets and is
//     the only goroutine that runs Config.Connect, Config.Data and
//     Config.Disconnect.
//
// Goroutines talk to the dispatch loop over channels only. A slow or
// silent new peer occupies its own handshake goroutine and never
// delays other connections. Because the dispatch loop handles one
// event at a time, envelopes from one connection are delivered in the
// order they arrived and callbacks never run concurrently with each
// other or with functions passed to [Multiplexer.Submit].
//
// [Multiplexer.DisconnectClient] and [Multiplexer.Connections] touch
// loop-owned state and must be called from a callback or a submitted
// function.
package mux
